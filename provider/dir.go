package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/logger"
)

// PrunedDirName is the subdirectory pruned payloads are written to
const PrunedDirName = "pruned"

// DirProvider reads full payloads from <dir>/<PROTEIN>.json and prunes them
// locally, keeping the pruned result next to them for reuse
type DirProvider struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewDirProvider creates a provider over dir
func NewDirProvider(dir string, log *zap.SugaredLogger) *DirProvider {
	return &DirProvider{dir: dir, logger: log.Named("provider.dir")}
}

type pruneMeta struct {
	Parent      string            `json:"parent"`
	Protein     string            `json:"protein"`
	KeepCount   int               `json:"keep_count"`
	HardMaxKeep int               `json:"hard_max_keep"`
	Reasons     map[string]string `json:"reasons,omitempty"`
	Kept        []string          `json:"kept"`
	CreatedAt   int64             `json:"created_at"`
}

type prunedDocument struct {
	Snapshot json.RawMessage `json:"snapshot_json"`
	Meta     pruneMeta       `json:"_prune_meta"`
}

// FullPath returns where the full payload for protein lives
func (d *DirProvider) FullPath(protein string) string {
	return filepath.Join(d.dir, protein+".json")
}

// PrunedPath returns where the pruned payload for a parent/protein pair lives
func (d *DirProvider) PrunedPath(parent, protein string) string {
	return filepath.Join(d.dir, PrunedDirName, parent+"_for_"+protein+".json")
}

// FetchPruned returns a fresh pruned file when one exists, otherwise prunes
// the full payload. Without a full payload the result asks for a full fetch.
func (d *DirProvider) FetchPruned(ctx context.Context, req ExpandRequest) (*PrunedResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	jobID := JobID(req.Parent, req.Protein)
	fullPath := d.FullPath(req.Protein)
	prunedPath := d.PrunedPath(req.Parent, req.Protein)
	limit := keepLimit(req.MaxKeep)

	fullInfo, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return &PrunedResult{JobID: jobID, NeedsFull: true}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", fullPath)
	}

	if res, ok := d.readFresh(prunedPath, fullInfo.ModTime(), limit); ok {
		res.JobID = jobID
		d.logger.Debugw("Using cached pruned payload", logger.FieldJobID, jobID, logger.FieldFile, prunedPath)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", fullPath)
	}
	res, err := PruneBytes(full, req)
	if err != nil {
		return nil, err
	}

	if err := d.writePruned(prunedPath, req, limit, res); err != nil {
		d.logger.Warnw("Failed to keep pruned payload", logger.FieldFile, prunedPath, logger.FieldError, err)
	}
	d.logger.Infow("Pruned expansion",
		logger.FieldJobID, jobID,
		logger.FieldCount, len(res.Kept))
	return res, nil
}

// FetchFull reads the full payload file
func (d *DirProvider) FetchFull(ctx context.Context, protein string) ([]byte, error) {
	if !ValidSymbol(protein) {
		return nil, errors.Newf("invalid protein symbol %q", protein)
	}
	data, err := os.ReadFile(d.FullPath(protein))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("no payload for %s in %s", protein, d.dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read payload for %s", protein)
	}
	return data, nil
}

// readFresh returns the pruned file when it is at least as new as the full
// payload and was pruned with the same cap
func (d *DirProvider) readFresh(path string, fullMod time.Time, limit int) (*PrunedResult, bool) {
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Before(fullMod) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var doc prunedDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Meta.HardMaxKeep != limit {
		return nil, false
	}
	return &PrunedResult{Payload: doc.Snapshot, Kept: doc.Meta.Kept}, true
}

func (d *DirProvider) writePruned(path string, req ExpandRequest, limit int, res *PrunedResult) error {
	doc := prunedDocument{
		Snapshot: res.Payload,
		Meta: pruneMeta{
			Parent:      req.Parent,
			Protein:     req.Protein,
			KeepCount:   len(res.Kept),
			HardMaxKeep: limit,
			Kept:        res.Kept,
			CreatedAt:   time.Now().Unix(),
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode pruned payload")
	}
	if err := os.MkdirAll(filepath.Dir(path), am.DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create pruned directory")
	}
	return os.WriteFile(path, data, am.DefaultFilePermissions)
}

func validateRequest(req ExpandRequest) error {
	if !ValidSymbol(req.Parent) {
		return errors.Newf("invalid parent symbol %q", req.Parent)
	}
	if !ValidSymbol(req.Protein) {
		return errors.Newf("invalid protein symbol %q", req.Protein)
	}
	return nil
}

// keepLimit applies the default and hard caps to a requested keep count
func keepLimit(maxKeep int) int {
	if maxKeep <= 0 {
		return DefaultMaxKeep
	}
	return min(maxKeep, HardMaxKeep)
}
