// Package metadata builds the provenance block written next to the
// collected issues.
package metadata

import (
	"time"

	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/pkg/models"
)

// GeneratorName identifies this tool in the output.
const GeneratorName = "danielolaszy/doc-issues"

const unknownVersion = "unknown"

// RunContext is everything the metadata block is derived from.
type RunContext struct {
	// Now is the generation time
	Now time.Time

	// Repositories lists the "owner/repo" identifiers that produced base data
	Repositories []string

	// Run is the automation run environment, empty outside of a runner
	Run config.RunConfig

	// Version overrides the resolved generator version when set
	Version string

	// ProjectStateMining reflects the configuration, not data availability
	ProjectStateMining bool
}

// Build assembles the metadata block of a run.
func Build(rc RunContext) models.RunMetadata {
	repositories := append([]string{}, rc.Repositories...)

	meta := models.RunMetadata{
		GeneratedAt: models.FormatTime(rc.Now),
		Generator: models.Generator{
			Name:    GeneratorName,
			Version: Version(rc),
		},
		Source: models.Source{Repositories: repositories},
		Inputs: models.InputsInfo{ProjectStateMiningEnabled: rc.ProjectStateMining},
	}

	run := models.RunInfo{
		Workflow:   rc.Run.Workflow,
		RunID:      rc.Run.RunID,
		RunAttempt: rc.Run.RunAttempt,
		Actor:      rc.Run.Actor,
		Ref:        rc.Run.Ref,
		SHA:        rc.Run.SHA,
	}
	if !run.IsZero() {
		meta.Run = &run
	}

	return meta
}

// Version resolves the generator version: an explicit version, the action
// ref, the short commit SHA, or "unknown".
func Version(rc RunContext) string {
	switch {
	case rc.Version != "":
		return rc.Version
	case rc.Run.ActionRef != "":
		return rc.Run.ActionRef
	case len(rc.Run.SHA) > 7:
		return rc.Run.SHA[:7]
	case rc.Run.SHA != "":
		return rc.Run.SHA
	}
	return unknownVersion
}
