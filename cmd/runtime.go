package cmd

import (
	"github.com/dt-pm-tools/jira-sync/internal/catalog"
	"github.com/dt-pm-tools/jira-sync/internal/config"
	"github.com/dt-pm-tools/jira-sync/internal/jira"
	"github.com/dt-pm-tools/jira-sync/internal/journal"
	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/dt-pm-tools/jira-sync/internal/markdown"
	"github.com/dt-pm-tools/jira-sync/internal/syncer"
)

// syncRuntime bundles what the watch and sync commands share.
type syncRuntime struct {
	client  *jira.Client
	catalog *catalog.Catalog
	journal *journal.Store
	engine  *syncer.Engine
}

func openRuntime() (*syncRuntime, error) {
	store, err := journal.Open(appConfig.ResolveStateDir())
	if err != nil {
		return nil, err
	}

	client := jira.NewClient(appConfig)
	cat := catalog.New(client, appConfig.Project, catalog.Options{
		EpicNameField: appConfig.EpicNameField,
		StoryType:     appConfig.StoryType,
		TaskType:      appConfig.TaskType,
		Logger:        logger,
	})
	engine := syncer.New(client, cat, syncer.Options{
		Project:     appConfig.Project,
		SkipUpdates: appConfig.SkipUpdates(),
		Renderer:    rendererFor(appConfig.Renderer),
		Recorder:    store,
		Logger:      logger,
	})

	logging.NewComponentLogger(logger, "jira-sync").Info("configured",
		"url", appConfig.URL,
		"project", appConfig.Project,
		"update_mode", appConfig.UpdateMode,
		"renderer", appConfig.Renderer,
		"journal", store.Path(),
		logging.FieldRun, engine.RunID())

	return &syncRuntime{client: client, catalog: cat, journal: store, engine: engine}, nil
}

func (r *syncRuntime) Close() {
	if err := r.journal.Close(); err != nil {
		logger.Warn("failed to close journal", logging.Error(err))
	}
}

func rendererFor(name string) markdown.Renderer {
	if name == config.RendererPlain {
		return markdown.PlainRenderer{}
	}
	return markdown.ADFRenderer{}
}
