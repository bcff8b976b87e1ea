package resolver_test

import (
	"testing"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/resolver"
	"github.com/stretchr/testify/require"
)

func baseCfg() *config.Config {
	return &config.Config{File: config.File{
		Paths: config.Paths{PDBDir: "/data/pdb"},
		Sync: config.Sync{
			Custom: map[string]config.CustomSync{
				"weekly": {URL: "rsync.rcsb.org::ftp_data/structures/divided/mmCIF", Dest: "mmcif", Preset: "safe"},
				"alpha":  {URL: "rsync://rsync.pdbj.org/data", Dest: "alpha"},
			},
		},
	}}
}

func TestResolveSingleNamedJob(t *testing.T) {
	cfg := baseCfg()
	resolved, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, resolver.CLIOverrides{})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, "weekly", resolved[0].Name)
	require.Equal(t, "/data/pdb/mmcif", resolved[0].AbsoluteDest)
	require.NotNil(t, resolved[0].Flags.Checksum)
	require.True(t, *resolved[0].Flags.Checksum)
}

func TestResolveUnknownJob(t *testing.T) {
	cfg := baseCfg()
	_, err := resolver.Resolve(cfg, resolver.Selection{Name: "nope"}, resolver.CLIOverrides{})
	require.Error(t, err)
	rerr, ok := err.(*resolver.Error)
	require.True(t, ok)
	require.Equal(t, resolver.UnknownJob, rerr.Kind)
}

func TestResolveAllSortsByName(t *testing.T) {
	cfg := baseCfg()
	resolved, err := resolver.Resolve(cfg, resolver.Selection{All: true}, resolver.CLIOverrides{})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.Equal(t, "alpha", resolved[0].Name)
	require.Equal(t, "weekly", resolved[1].Name)
}

func TestResolveCLIOverridesWinOverPreset(t *testing.T) {
	cfg := baseCfg()
	cli := resolver.CLIOverrides{Flags: flagbag.Bag{Checksum: flagbag.WithBool(false)}}
	resolved, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, cli)
	require.NoError(t, err)
	require.NotNil(t, resolved[0].Flags.Checksum)
	require.False(t, *resolved[0].Flags.Checksum)
}

func TestResolveRejectsDestEscape(t *testing.T) {
	cfg := baseCfg()
	job := cfg.Sync.Custom["weekly"]
	job.Dest = "../../etc"
	cfg.Sync.Custom["weekly"] = job

	_, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, resolver.CLIOverrides{})
	require.Error(t, err)
	rerr, ok := err.(*resolver.Error)
	require.True(t, ok)
	require.Equal(t, resolver.InvalidDest, rerr.Kind)
}

func TestResolveRejectsBadURL(t *testing.T) {
	cfg := baseCfg()
	job := cfg.Sync.Custom["weekly"]
	job.URL = "http://not-rsync.example/foo"
	cfg.Sync.Custom["weekly"] = job

	_, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, resolver.CLIOverrides{})
	require.Error(t, err)
	rerr, ok := err.(*resolver.Error)
	require.True(t, ok)
	require.Equal(t, resolver.InvalidURL, rerr.Kind)
}

func TestResolveRejectsShellMetacharacters(t *testing.T) {
	cfg := baseCfg()
	job := cfg.Sync.Custom["weekly"]
	job.URL = "rsync://rsync.rcsb.org/mod; rm -rf /"
	cfg.Sync.Custom["weekly"] = job

	_, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, resolver.CLIOverrides{})
	require.Error(t, err)
}

func TestResolveFlagValidationPropagates(t *testing.T) {
	cfg := baseCfg()
	cli := resolver.CLIOverrides{Flags: flagbag.Bag{
		Verbose: flagbag.WithBool(true),
		Quiet:   flagbag.WithBool(true),
	}}
	_, err := resolver.Resolve(cfg, resolver.Selection{Name: "weekly"}, cli)
	require.Error(t, err)
	rerr, ok := err.(*resolver.Error)
	require.True(t, ok)
	require.Equal(t, resolver.FlagValidation, rerr.Kind)
}
