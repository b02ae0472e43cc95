// Package engine sequences the stages of one infrastructure change run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/stackgate/stackctl/internal/approval"
	"github.com/stackgate/stackctl/internal/artifact"
	"github.com/stackgate/stackctl/internal/checkout"
	"github.com/stackgate/stackctl/internal/cioutput"
	"github.com/stackgate/stackctl/internal/config"
	"github.com/stackgate/stackctl/internal/creds"
	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/journal"
	"github.com/stackgate/stackctl/internal/notify"
	"github.com/stackgate/stackctl/internal/run"
	"github.com/stackgate/stackctl/internal/stage"
	"github.com/stackgate/stackctl/internal/tool"
)

// Options bundles the collaborators a run needs. Zero fields fall back to
// the real implementations derived from the config.
type Options struct {
	// Config is the validated orchestration settings. Required.
	Config *config.Config
	// Runner executes stage commands.
	Runner stage.Runner
	// Responder answers approval prompts.
	Responder approval.Responder
	// Creds supplies credentials for checkout and tool stages.
	Creds creds.Source
	// Notifier delivers run results; nil disables notification.
	Notifier *notify.Notifier
	// Archiver uploads recorded artifacts; nil disables archiving.
	Archiver *artifact.Archiver
	// Fs is the filesystem artifacts and journals are written to.
	Fs afero.Fs
	// Now supplies wall-clock time.
	Now func() time.Time
}

type timeouts struct {
	tool      time.Duration
	plan      time.Duration
	execute   time.Duration
	checkout  time.Duration
	approval  time.Duration
	escalated time.Duration
}

type paths struct {
	checkoutDir  string
	workDir      string
	artifactsDir string
	journalDir   string
}

// Engine drives one run at a time through the stage sequence for its action.
type Engine struct {
	logger   *slog.Logger
	cfg      *config.Config
	runner   stage.Runner
	gate     *approval.Gate
	creds    creds.Source
	notifier *notify.Notifier
	archiver *artifact.Archiver
	fs       afero.Fs
	tool     *tool.Tool
	timeouts timeouts
	paths    paths
	now      func() time.Time
}

// New wires an Engine from config and collaborators.
func New(logger *slog.Logger, opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Runner == nil {
		opts.Runner = stage.NewExecRunner(logger)
	}
	if opts.Creds == nil {
		opts.Creds = creds.Chain{
			creds.NewStaticSource(env.Vars(cfg.Credentials.Static)),
			creds.NewFileSource(cfg.BaseDir(), cfg.Credentials.EnvFiles),
		}
	}
	if opts.Notifier == nil {
		timeout, err := config.ParseTimeout(cfg.Notify.Timeout, notify.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		opts.Notifier = notify.New(logger, notify.Config{
			URL:     cfg.Notify.WebhookURL,
			Channel: cfg.Notify.Channel,
			Timeout: timeout,
		})
	}
	if opts.Archiver == nil && cfg.Artifacts.Archive != nil {
		archiver, err := artifact.NewArchiver(artifact.ArchiveConfig{
			Bucket: cfg.Artifacts.Archive.Bucket,
			Prefix: cfg.Artifacts.Archive.Prefix,
			Region: cfg.Artifacts.Archive.Region,
		}, opts.Fs, logger)
		if err != nil {
			return nil, fmt.Errorf("build artifact archiver: %w", err)
		}
		opts.Archiver = archiver
	}

	t, err := parseTimeouts(cfg)
	if err != nil {
		return nil, err
	}

	p := paths{
		checkoutDir:  absolutize(cfg.CheckoutDir()),
		workDir:      absolutize(cfg.ToolWorkDir()),
		artifactsDir: absolutize(cfg.ArtifactsDir()),
		journalDir:   absolutize(cfg.JournalDir()),
	}

	return &Engine{
		logger:   logger,
		cfg:      cfg,
		runner:   opts.Runner,
		gate:     approval.NewGate(opts.Responder, logger),
		creds:    opts.Creds,
		notifier: opts.Notifier,
		archiver: opts.Archiver,
		fs:       opts.Fs,
		tool:     tool.New(cfg.Tool.Binary, p.workDir, t.tool, t.execute),
		timeouts: t,
		paths:    p,
		now:      opts.Now,
	}, nil
}

func parseTimeouts(cfg *config.Config) (timeouts, error) {
	var t timeouts
	var err error
	if t.tool, err = config.ParseTimeout(cfg.Tool.Timeout, 0); err != nil {
		return t, err
	}
	if t.plan, err = config.ParseTimeout(cfg.Tool.PlanTimeout, t.tool); err != nil {
		return t, err
	}
	if t.execute, err = config.ParseTimeout(cfg.Tool.ExecuteTimeout, t.tool); err != nil {
		return t, err
	}
	if t.checkout, err = config.ParseTimeout(cfg.Checkout.Timeout, 0); err != nil {
		return t, err
	}
	if t.approval, err = config.ParseTimeout(cfg.Approval.Timeout, 0); err != nil {
		return t, err
	}
	if t.escalated, err = config.ParseTimeout(cfg.Approval.EscalatedTimeout, t.approval); err != nil {
		return t, err
	}
	return t, nil
}

// absolutize pins a path to the process working directory so the tool,
// which runs with its own working directory, still finds it.
func absolutize(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// runContext carries everything the stages of one run read and update.
// Stages receive it explicitly; there is no process-wide run state.
type runContext struct {
	req       run.Request
	runID     string
	logger    *slog.Logger
	envCfg    config.ResolvedEnvironment
	region    string
	artifacts *artifact.Manager
	journal   *journal.Journal
	stageEnv  env.Vars

	artifactPath string
	results      []stage.Result
	approvals    []approval.Decision
	mutation     run.Mutation
}

type stageSpec struct {
	name   stage.Name
	active func(*runContext) bool
	run    func(context.Context, *runContext) error
}

func (e *Engine) stages() []stageSpec {
	always := func(*runContext) bool { return true }
	mutating := func(rc *runContext) bool { return rc.req.Action.Mutating() }
	return []stageSpec{
		{name: stage.Checkout, active: func(*runContext) bool { return e.cfg.Checkout.Repository != "" }, run: e.runCheckout},
		{name: stage.Init, active: always, run: e.runInit},
		{name: stage.Validate, active: func(rc *runContext) bool { return e.cfg.Stages.ValidateFor(rc.req.Action) }, run: e.runValidate},
		{name: stage.Plan, active: always, run: e.runPlan},
		{name: stage.Test, active: func(rc *runContext) bool { return e.cfg.Stages.TestFor(rc.req.Action) }, run: e.runTest},
		{name: stage.Approval, active: mutating, run: e.runApproval},
		{name: stage.Execute, active: mutating, run: e.runExecute},
	}
}

// Run drives one request through the stage sequence and returns its outcome.
// The returned error carries the typed cause when the run did not complete;
// the Outcome is populated in either case once the environment resolves.
func (e *Engine) Run(ctx context.Context, req run.Request) (Outcome, error) {
	envCfg, err := config.ResolveEnvironment(e.cfg, req.Environment)
	if err != nil {
		return Outcome{}, err
	}

	region := req.Region
	if region == "" {
		region = envCfg.Region
	}

	started := e.now()
	runID := run.NewID(started)
	logger := e.logger.With("run_id", runID, "environment", envCfg.Name, "action", string(req.Action))

	rc := &runContext{
		req:       req,
		runID:     runID,
		logger:    logger,
		envCfg:    envCfg,
		region:    region,
		artifacts: artifact.NewManager(e.fs, logger, e.paths.artifactsDir, e.cfg.Artifacts.Prefix, e.cfg.Artifacts.Extension),
		mutation:  run.MutationNone,
	}

	if !e.cfg.Journal.Disabled {
		jnl, jerr := journal.Open(e.fs, logger, e.paths.journalDir, runID)
		if jerr != nil {
			logger.Warn("journal unavailable", "error", jerr)
		} else {
			rc.journal = jnl
		}
	}

	logger.Info("run started", "region", region)
	rc.journal.Append(journal.Event{
		Name:        journal.EventRunStarted,
		Environment: envCfg.Name,
		Action:      string(req.Action),
		Region:      region,
	})

	runErr := e.prepareStageEnv(ctx, rc)
	if runErr == nil {
		runErr = e.runStages(ctx, rc)
	}

	status := statusFor(runErr)
	e.cleanup(ctx, rc, status)

	finished := e.now()
	rc.journal.Append(journal.Event{
		Name:       journal.EventRunFinished,
		Status:     string(status),
		Mutation:   string(rc.mutation),
		DurationMS: finished.Sub(started).Milliseconds(),
	})
	e.archive(ctx, rc)

	outcome := Outcome{
		RunID:        runID,
		Environment:  envCfg.Name,
		Action:       req.Action,
		Region:       region,
		Status:       status,
		Mutation:     rc.mutation,
		Results:      rc.results,
		ArtifactPath: rc.artifactPath,
		Started:      started,
		Finished:     finished,
	}

	if runErr != nil {
		logger.Error("run finished", "status", status, "mutation", rc.mutation, "error", runErr)
		return outcome, runErr
	}
	logger.Info("run finished", "status", status, "mutation", rc.mutation, "duration", finished.Sub(started))
	return outcome, nil
}

func (e *Engine) prepareStageEnv(ctx context.Context, rc *runContext) error {
	fileVars, err := e.cfg.LoadEnvFiles()
	if err != nil {
		return err
	}
	credVars, err := e.creds.Fetch(ctx, nil)
	if err != nil {
		return fmt.Errorf("fetch credentials: %w", err)
	}
	rc.stageEnv = env.Merge(fileVars, credVars)
	return nil
}

func (e *Engine) runStages(ctx context.Context, rc *runContext) error {
	for _, s := range e.stages() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run aborted before %s: %w", s.name, err)
		}
		if !s.active(rc) {
			rc.results = append(rc.results, stage.Skipped(s.name))
			continue
		}
		if err := s.run(ctx, rc); err != nil {
			return err
		}
	}
	return nil
}

func statusFor(err error) run.Status {
	switch {
	case err == nil:
		return run.StatusCompleted
	case approval.IsTimeout(err):
		return run.StatusApprovalTimeout
	case checkout.IsCheckoutError(err):
		return run.StatusCheckoutFailed
	default:
		return run.StatusFailed
	}
}

// runToolStage executes one tool command, journals it and records its result.
func (e *Engine) runToolStage(ctx context.Context, rc *runContext, cmd stage.Command) error {
	cmd.Env = env.Merge(rc.stageEnv, cmd.Env)
	rc.journal.Append(journal.Event{Name: journal.EventStageStarted, Stage: string(cmd.Stage)})

	res := e.runner.Run(ctx, cmd)
	rc.results = append(rc.results, res)
	rc.journal.Append(journal.Event{
		Name:       journal.EventStageFinished,
		Stage:      string(cmd.Stage),
		Status:     string(res.Status),
		ExitCode:   journal.IntPtr(res.ExitCode),
		DurationMS: res.Duration.Milliseconds(),
		Detail:     res.Summary,
	})

	if res.Status != stage.StatusSuccess {
		return &StageError{Stage: cmd.Stage, ExitCode: res.ExitCode, Summary: res.Summary}
	}
	return nil
}

func (e *Engine) runCheckout(ctx context.Context, rc *runContext) error {
	vars, err := e.creds.Fetch(ctx, e.cfg.Checkout.CredentialRefs)
	if err != nil {
		return fmt.Errorf("fetch checkout credentials: %w", err)
	}

	co := &checkout.Checkout{
		Repository: e.cfg.Checkout.Repository,
		Ref:        e.cfg.Checkout.Ref,
		Dir:        e.paths.checkoutDir,
		Timeout:    e.timeouts.checkout,
	}

	rc.journal.Append(journal.Event{Name: journal.EventStageStarted, Stage: string(stage.Checkout)})
	res, err := co.Run(ctx, e.runner, vars)
	rc.results = append(rc.results, res)
	rc.journal.Append(journal.Event{
		Name:       journal.EventStageFinished,
		Stage:      string(stage.Checkout),
		Status:     string(res.Status),
		ExitCode:   journal.IntPtr(res.ExitCode),
		DurationMS: res.Duration.Milliseconds(),
		Detail:     res.Summary,
	})
	return err
}

func (e *Engine) runInit(ctx context.Context, rc *runContext) error {
	return e.runToolStage(ctx, rc, e.tool.InitCommand())
}

func (e *Engine) runValidate(ctx context.Context, rc *runContext) error {
	return e.runToolStage(ctx, rc, e.tool.ValidateCommand())
}

func (e *Engine) runPlan(ctx context.Context, rc *runContext) error {
	if err := rc.artifacts.EnsureDir(); err != nil {
		return fmt.Errorf("prepare artifact dir: %w", err)
	}

	path := rc.artifacts.Name(rc.envCfg.Name, rc.req.Timestamp)
	cmd := e.tool.PlanCommand(tool.PlanOptions{
		ArtifactPath: path,
		VarFile:      rc.envCfg.VarFile,
		Vars:         rc.req.Vars,
		Region:       rc.region,
		Destroy:      rc.req.Action.Destructive(),
	})
	cmd.Timeout = e.timeouts.plan

	if err := e.runToolStage(ctx, rc, cmd); err != nil {
		return err
	}

	rc.artifacts.Record(path)
	rc.artifactPath = path
	rc.journal.Append(journal.Event{Name: journal.EventArtifactRecorded, Artifact: path, Environment: rc.envCfg.Name})
	return nil
}

func (e *Engine) runTest(ctx context.Context, rc *runContext) error {
	return e.runToolStage(ctx, rc, e.tool.TestCommand())
}

func (e *Engine) runApproval(ctx context.Context, rc *runContext) error {
	started := e.now()

	if _, err := e.openGate(ctx, rc, false, e.timeouts.approval); err != nil {
		rc.results = append(rc.results, e.approvalResult(rc, started, err))
		return err
	}

	if rc.envCfg.EscalatedApproval && rc.req.Action.Destructive() {
		if _, err := e.openGate(ctx, rc, true, e.timeouts.escalated); err != nil {
			rc.results = append(rc.results, e.approvalResult(rc, started, err))
			return err
		}
	}

	rc.results = append(rc.results, e.approvalResult(rc, started, nil))
	return nil
}

func (e *Engine) openGate(ctx context.Context, rc *runContext, escalated bool, timeout time.Duration) (approval.Decision, error) {
	prompt := approval.Prompt{
		Environment: rc.envCfg.Name,
		Action:      string(rc.req.Action),
		Message:     promptMessage(rc, escalated),
		Escalated:   escalated,
	}

	rc.journal.Append(journal.Event{Name: journal.EventApprovalRequested, Escalated: escalated})
	decision, err := e.gate.Open(ctx, prompt, timeout)
	rc.journal.Append(journal.Event{
		Name:      journal.EventApprovalResolved,
		Escalated: escalated,
		Granted:   journal.BoolPtr(decision.Granted),
		InTime:    journal.BoolPtr(decision.RespondedInTime),
		Approver:  decision.Approver,
	})
	if err != nil {
		return decision, err
	}

	rc.approvals = append(rc.approvals, decision)
	return decision, nil
}

func promptMessage(rc *runContext, escalated bool) string {
	if escalated {
		return fmt.Sprintf("%s on %s is destructive and requires a second confirmation. Confirm again to proceed.",
			rc.req.Action, rc.envCfg.Name)
	}
	return fmt.Sprintf("Approve %s on %s (region %s)? Plan artifact: %s",
		rc.req.Action, rc.envCfg.Name, rc.region, rc.artifactPath)
}

func (e *Engine) approvalResult(rc *runContext, started time.Time, err error) stage.Result {
	res := stage.Result{
		Stage:    stage.Approval,
		Status:   stage.StatusSuccess,
		Duration: e.now().Sub(started),
	}
	switch {
	case err == nil:
		res.Summary = grantSummary(rc.approvals)
	case approval.IsTimeout(err):
		res.Status = stage.StatusFailure
		res.ExitCode = -1
		res.Summary = "approval timed out"
	case approval.IsDenied(err):
		res.Status = stage.StatusFailure
		res.ExitCode = -1
		res.Summary = "approval denied"
	default:
		res.Status = stage.StatusFailure
		res.ExitCode = -1
		res.Summary = err.Error()
	}
	return res
}

func grantSummary(decisions []approval.Decision) string {
	approver := ""
	for _, d := range decisions {
		if d.Approver != "" {
			approver = d.Approver
		}
	}
	if len(decisions) > 1 {
		if approver != "" {
			return fmt.Sprintf("granted twice, last by %s", approver)
		}
		return "granted twice"
	}
	if approver != "" {
		return fmt.Sprintf("granted by %s", approver)
	}
	return "granted"
}

func (e *Engine) runExecute(ctx context.Context, rc *runContext) error {
	if rc.artifactPath == "" {
		return &StageError{Stage: stage.Execute, ExitCode: -1, Summary: "no plan artifact recorded by this run"}
	}
	if !rc.artifacts.Exists() {
		return &StageError{Stage: stage.Execute, ExitCode: -1, Summary: fmt.Sprintf("plan artifact %q missing on disk", rc.artifactPath)}
	}

	// From here on the tool may have touched real resources.
	rc.mutation = run.MutationPartial
	if err := e.runToolStage(ctx, rc, e.tool.ExecuteCommand(rc.artifactPath)); err != nil {
		return err
	}

	if rc.req.Action.Destructive() {
		rc.mutation = run.MutationDestroyed
	} else {
		rc.mutation = run.MutationApplied
	}
	return nil
}

// cleanup runs the best-effort tail of every run: retention pruning,
// notification and CI output. Failures here are logged and never change
// the run's outcome.
func (e *Engine) cleanup(ctx context.Context, rc *runContext, status run.Status) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	removed, err := rc.artifacts.Prune(rc.envCfg.Name, e.cfg.Artifacts.Keep)
	if err != nil {
		rc.logger.Warn("artifact prune failed", "error", err)
	}
	if removed > 0 {
		rc.journal.Append(journal.Event{Name: journal.EventArtifactPruned, Environment: rc.envCfg.Name, Removed: removed})
	}

	if e.notifier.Enabled() {
		ev := journal.Event{Name: journal.EventNotifySent, Status: "delivered"}
		err := e.notifier.Send(cleanupCtx, notify.Message{
			RunID:       rc.runID,
			Environment: rc.envCfg.Name,
			Action:      string(rc.req.Action),
			Status:      string(status),
			Mutation:    string(rc.mutation),
		})
		if err != nil {
			rc.logger.Warn("notification failed", "error", err)
			ev.Status = "failed"
			ev.Detail = err.Error()
		}
		rc.journal.Append(ev)
	}

	if err := cioutput.Publish(cioutput.Result{
		RunID:        rc.runID,
		Status:       string(status),
		Mutation:     string(rc.mutation),
		ArtifactPath: rc.artifactPath,
	}); err != nil {
		rc.logger.Warn("ci output failed", "error", err)
	}
}

// archive uploads the plan artifact and the journal for audit. It runs
// after the final journal event is written.
func (e *Engine) archive(ctx context.Context, rc *runContext) {
	if e.archiver == nil {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	if err := e.archiver.Archive(archiveCtx, rc.runID, rc.artifactPath, rc.journal.Path()); err != nil {
		rc.logger.Warn("artifact archive failed", "error", err)
	}
}
