package profile

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/airq-etl/internal/domain"
)

//go:embed profiles/*.yaml
var bundled embed.FS

var validate = validator.New()

// profileFile is the YAML form of a network profile.
type profileFile struct {
	NetworkID        string                    `yaml:"network_id" validate:"required,alphanum"`
	Description      string                    `yaml:"description"`
	TimestampColumn  string                    `yaml:"timestamp_column" validate:"required"`
	TimestampFormat  string                    `yaml:"timestamp_format"`
	Timezone         string                    `yaml:"timezone"`
	ColumnPattern    string                    `yaml:"column_pattern" validate:"required"`
	FilenamePattern  string                    `yaml:"filename_pattern"`
	LenientNumbers   bool                      `yaml:"lenient_numbers"`
	MissingSentinels []string                  `yaml:"missing_sentinels"`
	Variables        map[string]variableColumn `yaml:"variables" validate:"required,min=1,dive"`
	StationsFile     string                    `yaml:"stations_file"`
	StationColumns   domain.StationColumns     `yaml:"station_columns"`
	Stations         []domain.Station          `yaml:"stations" validate:"dive"`
}

type variableColumn struct {
	Column string `yaml:"column" validate:"required"`
	Unit   string `yaml:"unit"`
}

// Decode parses and validates one YAML profile. baseDir resolves a relative
// stations_file.
func Decode(data []byte, baseDir string) (domain.NetworkProfile, error) {
	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return domain.NetworkProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if err := validate.Struct(pf); err != nil {
		return domain.NetworkProfile{}, fmt.Errorf("profile %q: %w", pf.NetworkID, err)
	}

	spec := domain.ProfileSpec{
		NetworkID:        strings.ToLower(pf.NetworkID),
		Description:      strings.TrimSpace(pf.Description),
		ColumnMap:        make(map[domain.Variable]string, len(pf.Variables)),
		Units:            make(map[domain.Variable]string, len(pf.Variables)),
		MissingSentinels: pf.MissingSentinels,
		TimestampColumn:  pf.TimestampColumn,
		TimestampFormat:  pf.TimestampFormat,
		Timezone:         pf.Timezone,
		ColumnPattern:    pf.ColumnPattern,
		FilenamePattern:  pf.FilenamePattern,
		LenientNumbers:   pf.LenientNumbers,
		StationColumns:   pf.StationColumns,
		Stations:         make(domain.StationDirectory, len(pf.Stations)),
	}
	for name, vc := range pf.Variables {
		v := domain.Variable(strings.ToUpper(name))
		spec.ColumnMap[v] = vc.Column
		if vc.Unit != "" {
			spec.Units[v] = vc.Unit
		}
	}
	for _, st := range pf.Stations {
		if _, dup := spec.Stations[st.ID]; dup {
			return domain.NetworkProfile{}, fmt.Errorf("profile %q: duplicate station %q", pf.NetworkID, st.ID)
		}
		spec.Stations[st.ID] = st
	}
	if pf.StationsFile != "" {
		spec.StationsFile = pf.StationsFile
		if !filepath.IsAbs(spec.StationsFile) && baseDir != "" {
			spec.StationsFile = filepath.Join(baseDir, spec.StationsFile)
		}
	}

	return domain.NewNetworkProfile(spec)
}

// Bundled returns the profiles compiled into the binary.
func Bundled() ([]domain.NetworkProfile, error) {
	return loadFS(bundled, "profiles", "")
}

// LoadDir reads every *.yaml and *.yml file in dir.
func LoadDir(dir string) ([]domain.NetworkProfile, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: profiles dir: %v", domain.ErrIO, err)
	}
	return loadFS(os.DirFS(dir), ".", dir)
}

func loadFS(fsys fs.FS, root, baseDir string) ([]domain.NetworkProfile, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("%w: read profiles: %v", domain.ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var (
		out  []domain.NetworkProfile
		errs []error
	)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, pathJoin(root, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		p, err := Decode(data, baseDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func pathJoin(root, name string) string {
	if root == "." || root == "" {
		return name
	}
	return root + "/" + name
}
