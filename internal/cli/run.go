package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/zoorunner/internal/config"
	"github.com/me/zoorunner/internal/engine"
	"github.com/me/zoorunner/internal/handler"
	"github.com/me/zoorunner/internal/host"
	"github.com/me/zoorunner/internal/runner"
	"github.com/me/zoorunner/internal/store"
	"github.com/me/zoorunner/internal/wrapper"
	"github.com/me/zoorunner/pkg/cwl"
)

type runOptions struct {
	workflowID      string
	inputsPath      string
	confPath        string
	confOut         string
	handlerName     string
	containerEngine string
	wrapperCmd      string
	cwltoolCmd      string
	noParallel      bool
	cfg             config.RunnerConfig
}

func newRunCmd() *cobra.Command {
	opts := runOptions{cfg: config.FromEnv(os.Getenv)}

	cmd := &cobra.Command{
		Use:   "run <cwl-file>",
		Short: "Execute a CWL workflow",
		Long: `Validates the inputs, wraps the workflow with stage-in/stage-out steps,
runs it with cwltool and prints the output object to stdout. Progress is
written to the host conf (--conf-out) and, with --db, to the status store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runJob(ctx, cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflowID, "id", "", "Workflow id (lenv.Identifier); defaults to the conf value")
	f.StringVar(&opts.inputsPath, "inputs", "", "YAML file of input values")
	f.StringVar(&opts.confPath, "conf", "", "Host conf YAML (lenv/main sections)")
	f.StringVar(&opts.confOut, "conf-out", "", "Write the updated host conf here")
	f.StringVar(&opts.handlerName, "handler", "local", "Output handler: local or s3")
	f.StringVar(&opts.containerEngine, "container-engine", "", "podman or docker (default: detect)")
	f.StringVar(&opts.wrapperCmd, "wrapper-cmd", "cwl-wrapper", "cwl-wrapper binary")
	f.StringVar(&opts.cwltoolCmd, "cwltool-cmd", "cwltool", "cwltool binary")
	f.StringVar(&opts.cfg.WorkDir, "workdir", opts.cfg.WorkDir, "Directory for job files")
	f.StringVar(&opts.cfg.OutDir, "outdir", opts.cfg.OutDir, "Engine output directory")
	f.StringVar(&opts.cfg.DBPath, "db", opts.cfg.DBPath, "SQLite status store (empty disables)")
	f.BoolVar(&opts.noParallel, "no-parallel", !opts.cfg.Parallel, "Run steps sequentially")

	return cmd
}

func runJob(ctx context.Context, cmd *cobra.Command, cwlPath string, opts runOptions) error {
	cfg := opts.cfg
	cfg.Parallel = !opts.noParallel
	cfg.Debug = cfg.Debug || flagDebug

	conf := host.NewConf(opts.workflowID, "")
	if opts.confPath != "" {
		var err error
		if conf, err = host.LoadConf(opts.confPath); err != nil {
			return err
		}
	}
	workflowID := opts.workflowID
	if workflowID == "" {
		workflowID = conf.WorkflowID()
	}
	if workflowID == "" {
		return fmt.Errorf("no workflow id: pass --id or set lenv.Identifier in the conf")
	}
	conf.Set(host.SectionLenv, host.KeyIdentifier, workflowID)

	doc, err := loadDocument(cwlPath, workflowID)
	if err != nil {
		return err
	}
	inputs, err := loadInputs(opts.inputsPath)
	if err != nil {
		return err
	}

	var sink host.StatusSink
	var st *store.SQLiteStore
	if cfg.DBPath != "" {
		if st, err = openStore(ctx, cfg.DBPath); err != nil {
			return err
		}
		defer st.Close()
		if err := st.CreateRun(ctx, &store.Run{ID: conf.RunID(), WorkflowID: workflowID}); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		sink = st
	}
	reporter := host.NewConfReporter(conf, logger, sink)

	h, err := newHandler(ctx, opts.handlerName, conf, workflowID, cfg.StageOut)
	if err != nil {
		return err
	}

	var ce engine.ContainerEngine
	if opts.containerEngine != "" {
		if ce, err = engine.ParseContainerEngine(opts.containerEngine); err != nil {
			return err
		}
	}

	r, err := runner.New(runner.Config{
		Document: doc,
		Inputs:   inputs,
		Handler:  h,
		Reporter: reporter,
		Wrapper: &wrapper.CommandWrapper{
			Command: opts.wrapperCmd,
			Assets:  cfg.Wrapper,
			TempDir: cfg.WorkDir,
			Logger:  logger,
		},
		Engine:          &engine.CWLTool{Command: opts.cwltoolCmd, Logger: logger},
		ContainerEngine: ce,
		WorkDir:         cfg.WorkDir,
		OutDir:          cfg.OutDir,
		Parallel:        cfg.Parallel,
		Debug:           cfg.Debug,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	code, runErr := r.Execute(ctx)

	if st != nil {
		state, msg := store.RunSucceeded, ""
		if runErr != nil {
			state, msg = store.RunFailed, runErr.Error()
		}
		if err := st.FinishRun(context.WithoutCancel(ctx), conf.RunID(), state, msg); err != nil {
			logger.Warn("record run outcome failed", "error", err)
		}
	}
	if opts.confOut != "" {
		if err := conf.Save(opts.confOut); err != nil {
			logger.Warn("save conf failed", "error", err)
		}
	}

	if out := r.Outputs().Parameters(); len(out) > 0 {
		data, err := cwl.MarshalOutput(out)
		if err != nil {
			return fmt.Errorf("encode outputs: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}

	if code != host.ServiceSucceeded {
		return fmt.Errorf("execution %s: %w", code, runErr)
	}
	return nil
}

func newHandler(ctx context.Context, name string, conf host.Conf, process string, stageOut config.StageOutConfig) (runner.Handler, error) {
	local := handler.NewLocalHandler(conf.TmpPath(), process, stageOut, logger)
	switch name {
	case "", "local":
		return local, nil
	case "s3":
		up, err := handler.NewUploader(ctx, stageOut)
		if err != nil {
			return nil, err
		}
		return handler.NewS3Handler(local, up, stageOut.Bucket, stageOut.Prefix)
	default:
		return nil, fmt.Errorf("unknown handler %q (want local or s3)", name)
	}
}

func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return st, nil
}
