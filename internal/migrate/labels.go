package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/ghmigrate/internal/labels"
)

const (
	labelTargetMissingConstant     = "target owner and repository required for label migration"
	labelsStartedMessageConstant   = "Migrating labels"
	labelsCompletedMessageConstant = "Label migration complete"
	logFieldOwnerConstant          = "owner"
	logFieldRepositoryConstant     = "repository"
	logFieldDefinitionsConstant    = "definitions"
)

var errLabelTargetMissing = errors.New(labelTargetMissingConstant)

// LabelTarget overrides the configured target repository for label migration.
type LabelTarget struct {
	Owner      string
	Repository string
}

// MigrateLabels creates or updates every label in the definitions file in the target repository.
func (migrator *Migrator) MigrateLabels(executionContext context.Context, definitionsPath string, target LabelTarget) (labels.Summary, error) {
	if clientError := migrator.requireClient(); clientError != nil {
		return labels.Summary{}, clientError
	}

	owner := target.Owner
	if len(owner) == 0 {
		owner = migrator.configuration.Project.TargetOwner
	}
	repository := target.Repository
	if len(repository) == 0 {
		repository = migrator.configuration.Project.TargetRepository
	}
	if len(owner) == 0 || len(repository) == 0 {
		return labels.Summary{}, errLabelTargetMissing
	}

	definitions, definitionsError := labels.LoadDefinitions(definitionsPath)
	if definitionsError != nil {
		return labels.Summary{}, definitionsError
	}

	migrator.logger.Info(labelsStartedMessageConstant,
		zap.String(logFieldDefinitionsConstant, definitionsPath),
		zap.String(logFieldOwnerConstant, owner),
		zap.String(logFieldRepositoryConstant, repository),
	)

	summary := migrator.labelUpserter.UpsertLabels(executionContext, owner, repository, definitions)

	migrator.logger.Info(labelsCompletedMessageConstant,
		zap.Int(logFieldTotalConstant, summary.Total),
		zap.Int(logFieldSucceededConstant, summary.Succeeded),
		zap.Int(logFieldFailedConstant, summary.Failed),
	)
	return summary, nil
}
