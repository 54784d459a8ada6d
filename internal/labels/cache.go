package labels

import "strings"

const repositoryKeySeparatorConstant = "/"

// Cache holds existing labels per "owner/repo", keyed by lowercased label name.
type Cache struct {
	repositories map[string]map[string]Label
}

// NewCache constructs an empty cache.
func NewCache() *Cache {
	return &Cache{repositories: make(map[string]map[string]Label)}
}

// Labels returns the cached labels of a repository and whether the repository was loaded.
func (cache *Cache) Labels(owner string, repository string) (map[string]Label, bool) {
	repositoryLabels, loaded := cache.repositories[repositoryKey(owner, repository)]
	return repositoryLabels, loaded
}

// Store replaces the cached labels of a repository.
func (cache *Cache) Store(owner string, repository string, existingLabels []Label) {
	repositoryLabels := make(map[string]Label, len(existingLabels))
	for _, existingLabel := range existingLabels {
		repositoryLabels[labelKey(existingLabel.Name)] = existingLabel
	}
	cache.repositories[repositoryKey(owner, repository)] = repositoryLabels
}

// Refresh records a single label after it was created or updated.
func (cache *Cache) Refresh(owner string, repository string, label Label) {
	key := repositoryKey(owner, repository)
	repositoryLabels, loaded := cache.repositories[key]
	if !loaded {
		return
	}
	repositoryLabels[labelKey(label.Name)] = label
}

func repositoryKey(owner string, repository string) string {
	return strings.TrimSpace(owner) + repositoryKeySeparatorConstant + strings.TrimSpace(repository)
}

func labelKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
