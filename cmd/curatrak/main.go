package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/curatrak/internal/adapter"
	"github.com/maxbolgarin/curatrak/internal/app"
	"github.com/maxbolgarin/curatrak/internal/config"
	"github.com/maxbolgarin/curatrak/internal/monitor"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var (
	Version, Branch, Commit, BuildDate string
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()

	serveCmd = kingpin.Command("serve", "run the OpenAI-compatible proxy with workflow tracking")

	monitorCmd        = kingpin.Command("monitor", "print workflow status from the event log")
	monitorLogFile    = monitorCmd.Flag("log-file", "path to the event log").String()
	monitorInterval   = monitorCmd.Flag("interval", "seconds between scans").Default("5").Int()
	monitorIterations = monitorCmd.Flag("iterations", "number of scans, 0 runs until interrupted").Default("0").Int()

	askCmd    = kingpin.Command("ask", "send one prompt through the tracker")
	askPrompt = askCmd.Arg("prompt", "user message").Required().Strings()

	verifyCmd     = kingpin.Command("verify", "make tracked calls and check the event log")
	verifyCalls   = verifyCmd.Flag("calls", "number of calls").Default("3").Int()
	verifyMock    = verifyCmd.Flag("mock", "use a built-in static completer instead of the endpoint").Bool()
	verifyLogFile = verifyCmd.Flag("log-file", "path to the event log").String()

	profileCmd = kingpin.Command("profile", "print the client profile for OpenAI-compatible hosts")
)

func main() {
	kingpin.Version(lang.Check(Version, "dev"))
	command := kingpin.Parse()

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()
	err = run(ctx, command)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err)
	}
}

func run(ctx contem.Context, command string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}
	logze.Init(logze.C().WithConsole().WithLevel(lang.If(cfg.Debug, logze.LevelDebug, logze.LevelInfo)))

	switch command {
	case serveCmd.FullCommand():
		return serve(ctx, cfg)
	case monitorCmd.FullCommand():
		return runMonitor(ctx, cfg)
	case askCmd.FullCommand():
		return ask(ctx, cfg)
	case verifyCmd.FullCommand():
		return verify(ctx, cfg)
	case profileCmd.FullCommand():
		return printJSON(cfg.Profile())
	}

	return errm.Errorf("unknown command: %s", command)
}

func serve(ctx contem.Context, cfg config.Config) error {
	curatrak, err := app.New(ctx, cfg)
	if err != nil {
		return erro.Wrap(err, "new service")
	}
	return curatrak.Serve(ctx)
}

func runMonitor(ctx contem.Context, cfg config.Config) error {
	cfg.Monitor.LogFile = lang.Check(*monitorLogFile, cfg.Monitor.LogFile)
	cfg.Monitor.Interval = time.Duration(*monitorInterval) * time.Second
	cfg.Monitor.Iterations = *monitorIterations

	m, err := monitor.New(cfg.Monitor, os.Stdout)
	if err != nil {
		return erro.Wrap(err, "new monitor")
	}
	return m.Run(ctx)
}

func ask(ctx contem.Context, cfg config.Config) error {
	curatrak, err := app.New(ctx, cfg)
	if err != nil {
		return erro.Wrap(err, "new service")
	}

	resp, err := curatrak.Ask(ctx, strings.Join(*askPrompt, " "))
	if err != nil {
		return erro.Wrap(err, "ask")
	}
	return printJSON(resp)
}

func verify(ctx contem.Context, cfg config.Config) error {
	if *verifyLogFile != "" {
		cfg.Sink.File.Path = *verifyLogFile
		cfg.Monitor.LogFile = *verifyLogFile
	}

	var opts []app.Option
	if *verifyMock {
		opts = append(opts, app.WithCompleter(adapter.NewStatic(cfg.Agent.Model)))
	}

	curatrak, err := app.New(ctx, cfg, opts...)
	if err != nil {
		return erro.Wrap(err, "new service")
	}

	report, err := curatrak.Verify(ctx, *verifyCalls)
	fmt.Printf("Workflow ID: %s\n", report.WorkflowID)
	fmt.Printf("Log file: %s\n", report.LogFile)
	fmt.Printf("Starts: %d/%d\n", report.Starts, report.Calls)
	fmt.Printf("Completions: %d/%d\n", report.Completes, report.Calls)
	fmt.Printf("Errors: %d\n", report.Errors)
	if err != nil {
		return erro.Wrap(err, "verification failed")
	}

	fmt.Println("Verification successful: every call was tracked.")
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return erro.Wrap(err, "encode output")
	}
	fmt.Println(string(out))
	return nil
}
