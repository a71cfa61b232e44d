package commands

import (
	"os"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/provider"
)

// buildModel reads a payload file and builds its graph model
func buildModel(path string, ctx graph.ArrowContext, log *zap.SugaredLogger) (*graph.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read payload %s", path)
	}
	p, err := graph.DecodePayload(data)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to decode payload %s", path),
			"payloads need a main protein and an interactions or snapshot_json.interactors array")
	}
	return graph.NewBuilder(log).WithArrowContext(ctx).BuildPayload(p), nil
}

// loadEngine builds an engine from a payload file
func loadEngine(path string, prov provider.Provider, opts engine.Options, log *zap.SugaredLogger) (*engine.Engine, error) {
	m, err := buildModel(path, opts.ArrowContext, log)
	if err != nil {
		return nil, err
	}
	return engine.New(m, prov, opts, log), nil
}

// logProblems reports what the build absorbed at debug level
func logProblems(m *graph.Model, log *zap.SugaredLogger) {
	for _, problem := range m.Report.Problems {
		log.Debugw("Build problem", problem.ToLogFields()...)
	}
}
