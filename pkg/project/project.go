package project

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed embed/changekeeper.yaml
	defaultConfig []byte

	image = fstest.MapFS{
		consts.DefaultChangesetsFolder: {Mode: os.ModeDir | consts.ModeDir},
		consts.DefaultConfigFile:       {Data: defaultConfig},
		consts.DefaultProceduresFolder: {Mode: os.ModeDir | consts.ModeDir},
		consts.DefaultTablesFolder:     {Mode: os.ModeDir | consts.ModeDir},
		consts.DefaultTargetFolder:     {Mode: os.ModeDir | consts.ModeDir},
	}
)

type (
	// InitOptions contains options for project initialization
	InitOptions struct {
		// ConnectionString replaces the placeholder connection string in a newly
		// written changekeeper.yaml. Existing config files are not touched.
		ConnectionString string
	}

	Project struct {
		root   string
		config *config.Config
	}
)

// New creates a Project rooted at path. The directory must already exist.
func New(path string) *Project {
	return &Project{root: path}
}

// Root returns the project directory.
func (p *Project) Root() string {
	return p.root
}

// Config returns the configuration loaded by Initialize, or nil before that.
func (p *Project) Config() *config.Config {
	return p.config
}

// Initialize creates the missing parts of the project layout and loads the
// resulting configuration.
//
// Example:
//
//	proj := project.New(".")
//	opts := project.InitOptions{ConnectionString: "postgres://app@db:5432/app"}
//	if err := proj.Initialize(opts); err != nil {
//		log.Fatal("Failed to initialize project:", err)
//	}
func (p *Project) Initialize(options InitOptions) error {
	if err := p.ensureDirectory(); err != nil {
		return err
	}

	configPath := filepath.Join(p.root, consts.DefaultConfigFile)
	_, statErr := os.Stat(configPath)
	newConfig := os.IsNotExist(statErr)

	// Sorted so directories are created before anything placed inside them.
	paths := make([]string, 0, len(image))
	for path := range image {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		entry := image[path]
		fullPath := filepath.Join(p.root, path)

		if _, err := os.Stat(fullPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to stat %s", fullPath)
		}

		if entry.Mode.IsDir() {
			if err := os.MkdirAll(fullPath, entry.Mode.Perm()); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", fullPath)
			}

			continue
		}

		if err := os.WriteFile(fullPath, entry.Data, consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write file %s", fullPath)
		}
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", consts.DefaultConfigFile)
	}

	if newConfig && options.ConnectionString != "" {
		cfg.ConnectionString = options.ConnectionString
		if err := writeConfig(configPath, cfg); err != nil {
			return err
		}
	}

	p.config = cfg
	return nil
}

func (p *Project) ensureDirectory() error {
	dir, err := os.Stat(p.root)
	if err != nil {
		return errors.Wrapf(err, "failed to stat dir: %s", p.root)
	}

	if !dir.IsDir() {
		return errors.Errorf("%s is not a directory", p.root)
	}

	return nil
}

func writeConfig(path string, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open config file for writing: %s", path)
	}
	defer func() { _ = f.Close() }()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return errors.Wrap(err, "failed to write updated config")
	}

	return errors.Wrap(encoder.Close(), "failed to close yaml encoder")
}
