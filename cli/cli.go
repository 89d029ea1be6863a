package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/brace/cli/cmd"
	"github.com/ardnew/brace/pkg"
)

// CLI is the top-level command-line interface of brace.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Parse     cmd.Parse     `cmd:"" default:"withargs" help:"Evaluate templates"`
	Highlight cmd.Highlight `cmd:""                    help:"Syntax-highlight templates"`
	Tokens    cmd.Tokens    `cmd:""                    help:"Print the token tree of templates"`
	Repl      cmd.Repl      `cmd:""                    help:"Evaluate templates interactively"`
	Serve     cmd.Serve     `cmd:""                    help:"Serve template evaluation over HTTP"`
	Import    cmd.Import    `cmd:""                    help:"Load a fixture into a SQL database"`
	Init      cmd.Init      `cmd:""                    help:"Initialize configuration file"`
	Version   cmd.Version   `cmd:""                    help:"Print version"`
}

// Run executes the brace CLI with args. exit is called with the exit code
// when Kong terminates early, such as after printing help.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFile := configPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFile,
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cmd.Vars()).
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{cli.Log.group(), cli.Pprof.group()}),
		kong.BindSingletonProvider(func() context.Context { return ctx }),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			Tree:                true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(kong.JSON, configPath("config.json")),
		kong.Configuration(resolve, configFile),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	defer cli.Log.start(ctx)()
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx)
}
