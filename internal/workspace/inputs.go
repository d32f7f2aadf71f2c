package workspace

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siting-cli/internal/suitability"
)

// Inputs names the source datasets of an analysis. MaskPath is optional.
type Inputs struct {
	DEMPath   string
	RoadsPath string
	MaskPath  string
}

// Loaded holds the grids read by CheckInputs. Mask is nil when no mask was
// given.
type Loaded struct {
	DEM  *suitability.Grid
	Mask *suitability.Grid
}

// CheckInputs verifies that every input exists, loads the DEM and mask, and
// checks that the mask is aligned with the DEM. Alignment failures keep
// their *suitability.GridMismatchError type.
func CheckInputs(in Inputs) (*Loaded, error) {
	if in.DEMPath == "" {
		return nil, eris.New("workspace: DEM path is required")
	}
	if in.RoadsPath == "" {
		return nil, eris.New("workspace: roads path is required")
	}
	paths := []struct{ what, path string }{
		{"DEM", in.DEMPath},
		{"roads", in.RoadsPath},
	}
	if in.MaskPath != "" {
		paths = append(paths, struct{ what, path string }{"mask", in.MaskPath})
	}
	for _, p := range paths {
		if _, err := os.Stat(p.path); err != nil {
			return nil, eris.Wrapf(err, "workspace: %s file not found: %s", p.what, p.path)
		}
	}

	dem, err := LoadGrid(in.DEMPath)
	if err != nil {
		return nil, err
	}
	out := &Loaded{DEM: dem}
	if in.MaskPath == "" {
		return out, nil
	}
	mask, err := LoadGrid(in.MaskPath)
	if err != nil {
		return nil, err
	}
	if err := dem.Aligned(mask); err != nil {
		return nil, eris.Wrap(err, "workspace: mask does not align with DEM")
	}
	out.Mask = mask
	return out, nil
}
