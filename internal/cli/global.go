package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mapharvest/harvester/internal/client"
	"github.com/mapharvest/harvester/internal/config"
	"github.com/mapharvest/harvester/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

// GlobalOptions are shared by every command. Without a server url the
// commands open the store directly, with connection settings taken from the
// environment like the server does.
type GlobalOptions struct {
	Output    string
	ServerUrl string

	out    io.Writer
	config func() (*config.Config, error)
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		out:    os.Stdout,
		config: config.New,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of a running harvester server. Empty reads the database directly.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if cmd != nil && cmd.OutOrStdout() != nil {
		o.out = cmd.OutOrStdout()
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *GlobalOptions) remote() bool {
	return o.ServerUrl != ""
}

func (o *GlobalOptions) Client() *client.HarvesterClient {
	return client.NewHarvesterClient(o.ServerUrl, 0)
}

// openStore connects to the configured database. Sqlite schemas are created
// on the fly; postgres expects the migrate command to have run.
func (o *GlobalOptions) openStore() (*config.Config, store.Store, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, fmt.Errorf("reading configuration: %w", err)
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing data store: %w", err)
	}

	s := store.NewStore(db)
	if cfg.Database.Type != "pgsql" {
		if err := s.InitialMigration(); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("running initial migration: %w", err)
		}
	}
	return cfg, s, nil
}
