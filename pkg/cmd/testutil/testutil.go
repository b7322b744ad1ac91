package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/changekeeper/pkg/config"
	"github.com/pseudomuto/changekeeper/pkg/consts"
	"github.com/pseudomuto/changekeeper/pkg/project"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ProjectFixture represents a test project environment with all necessary dependencies
type ProjectFixture struct {
	Dir     string
	Config  *config.Config
	Project *project.Project
	t       *testing.T
}

// TestProject creates an isolated temp directory with an initialized
// changekeeper project. The fixture config uses absolute folder paths so
// commands do not depend on the working directory.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	tmpDir := t.TempDir()

	proj := project.New(tmpDir)
	require.NoError(t, proj.Initialize(project.InitOptions{}), "Failed to initialize test project")

	cfg := *proj.Config()
	cfg.ConnectionString = ""
	cfg.TargetFolder = filepath.Join(tmpDir, cfg.TargetFolder)
	cfg.Sources.Tables = filepath.Join(tmpDir, cfg.Sources.Tables)
	cfg.Sources.Changesets = filepath.Join(tmpDir, cfg.Sources.Changesets)
	cfg.Sources.Procedures = filepath.Join(tmpDir, cfg.Sources.Procedures)

	return &ProjectFixture{
		Dir:     tmpDir,
		Config:  &cfg,
		Project: proj,
		t:       t,
	}
}

// WithConnectionString sets the connection string of the fixture config.
func (p *ProjectFixture) WithConnectionString(dsn string) *ProjectFixture {
	p.Config.ConnectionString = dsn
	return p
}

// WithTable writes a table create statement below the tables folder.
func (p *ProjectFixture) WithTable(path, sql string) *ProjectFixture {
	p.t.Helper()
	p.writeFile(filepath.Join(p.Config.Sources.Tables, path), []byte(sql))
	return p
}

// WithChangesets writes a changeset file below the changesets folder.
func (p *ProjectFixture) WithChangesets(path, content string) *ProjectFixture {
	p.t.Helper()
	p.writeFile(filepath.Join(p.Config.Sources.Changesets, path), []byte(content))
	return p
}

// WithProcedure writes a procedure file below the procedures folder.
func (p *ProjectFixture) WithProcedure(path, sql string) *ProjectFixture {
	p.t.Helper()
	p.writeFile(filepath.Join(p.Config.Sources.Procedures, path), []byte(sql))
	return p
}

// WithFile writes raw bytes to a path relative to the project directory.
func (p *ProjectFixture) WithFile(path string, data []byte) *ProjectFixture {
	p.t.Helper()
	p.writeFile(filepath.Join(p.Dir, path), data)
	return p
}

// AuditPath returns the audit copy location for a changeset.
func (p *ProjectFixture) AuditPath(typ, name string) string {
	return filepath.Join(p.Config.TargetFolder, typ, name+consts.Extension)
}

// WriteConfig writes the fixture config to a file and returns its path, for
// passing with --config.
func (p *ProjectFixture) WriteConfig() string {
	p.t.Helper()

	data, err := yaml.Marshal(p.Config)
	require.NoError(p.t, err, "Failed to marshal config")

	path := filepath.Join(p.Dir, "fixture.yaml")
	p.writeFile(path, data)
	return path
}

func (p *ProjectFixture) writeFile(path string, data []byte) {
	p.t.Helper()

	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), consts.ModeDir))
	require.NoError(p.t, os.WriteFile(path, data, consts.ModeFile))
}
