package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"brickgrid.ai/internal/persistence/indexdb"
	persistlog "brickgrid.ai/internal/persistence/log"
	"brickgrid.ai/internal/sim/catalogs"
	"brickgrid.ai/internal/sim/grid"
	"brickgrid.ai/internal/sim/scenario"
	"brickgrid.ai/internal/sim/tuning"
)

type simulateOpts struct {
	configDir  string
	tuningPath string
	dataDir    string
	disableDB  bool
}

func loadConfig(configDir, tuningPath string) (*catalogs.Catalogs, tuning.Tuning, error) {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, tuning.Tuning{}, fmt.Errorf("load catalogs: %w", err)
	}
	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		return nil, tuning.Tuning{}, fmt.Errorf("load tuning: %w", err)
	}
	return cats, tune, nil
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "brickgrid.sqlite")
}

// loadScenario returns the script and its run name, which defaults to the
// file name without extension.
func loadScenario(path string) (*scenario.Script, string, error) {
	script, err := scenario.Load(path)
	if err != nil {
		return nil, "", err
	}
	name := script.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return script, name, nil
}

func newSimulateCmd() *cobra.Command {
	var o simulateOpts
	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a placement scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, o, args[0])
		},
	}
	cmd.Flags().StringVar(&o.configDir, "configs", "./configs", "config directory")
	cmd.Flags().StringVar(&o.tuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	cmd.Flags().StringVar(&o.dataDir, "data", "./data", "runtime data directory")
	cmd.Flags().BoolVar(&o.disableDB, "disable_db", false, "disable the SQLite audit index")
	return cmd
}

func runSimulate(cmd *cobra.Command, o simulateOpts, scenarioPath string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cats, tune, err := loadConfig(o.configDir, o.tuningPath)
	if err != nil {
		return err
	}
	script, name, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	// A run directory holds exactly one run.
	runDir := filepath.Join(o.dataDir, "runs", name)
	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("reset run dir: %w", err)
	}
	audit := persistlog.NewAuditLogger(runDir)
	defer audit.Close()
	ticks := persistlog.NewTickLogger(runDir)
	defer ticks.Close()
	tee := persistlog.Tee{
		Audits: []grid.AuditLogger{audit},
		Ticks:  []grid.TickLogger{ticks},
	}

	var idx *indexdb.SQLiteIndex
	if !o.disableDB {
		idx, err = indexdb.OpenSQLite(indexPath(o.dataDir), indexdb.Options{Run: name, Logger: logger})
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() {
			st := idx.Stats()
			if st.DropAuditTotal > 0 || st.DropTickTotal > 0 {
				logger.Warn("index dropped entries", "audits", st.DropAuditTotal, "ticks", st.DropTickTotal)
			}
			_ = idx.Close()
		}()
		if err := idx.UpsertCatalogs(o.configDir, cats, tune); err != nil {
			logger.Warn("index catalogs", "err", err)
		}
		tee.Audits = append(tee.Audits, idx)
		tee.Ticks = append(tee.Ticks, idx)
	}

	host := logHost{logger: logger}
	eng, err := grid.New(grid.ConfigFromTuning(tune), grid.Deps{
		Preview: host,
		Physics: host,
		Audit:   tee,
		TickLog: tee,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	r := &scenario.Runner{
		Engine:   eng,
		Catalogs: cats,
		Logger:   logger,
		TickDt:   1.0 / float64(tune.TickRateHz),
	}
	res, err := r.Run(ctx, script)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Ran scenario %s", name))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario=%s ticks=%d dropped=%d digest=%s\n", name, res.Ticks, res.Dropped, eng.Digest())
	for _, s := range eng.Objects() {
		label := s.ID.String()
		for n, id := range res.Objects {
			if id == s.ID {
				label = n
				break
			}
		}
		fmt.Fprintf(out, "  %-10s %-11s placed=%-5t supported=%-5t origin=(%d,%d) level=%d dir=%s id=%s\n",
			label, s.Template, s.Placed, s.HasBaseSupport, s.Origin.X, s.Origin.Y, s.Level, s.Dir, s.ID)
	}
	return nil
}
