// Command executor plays random episodes of the parking lot environment.
// Each iteration builds a fresh (optionally scrambled) environment, renders it,
// and applies random legal moves until the puzzle is solved, no vehicle can
// move, or the step budget runs out.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/parking-lot-game/game/config"
	"github.com/wricardo/parking-lot-game/game/engine"
	"github.com/wricardo/parking-lot-game/game/gym"
)

// Stop reasons of an iteration
const (
	StopSolved   = "solved"
	StopNoMoves  = "no_moves"
	StopMaxSteps = "max_steps"
	StopCanceled = "canceled"
)

// IterationResult summarizes one episode
type IterationResult struct {
	Steps  int
	Solved bool
	Reason string
}

// Summary aggregates all iterations of a run
type Summary struct {
	Iterations int
	Solved     int
	TotalSteps int
}

// EnvFactory builds the environment for one iteration
type EnvFactory func(rng *rand.Rand) (*gym.Env, error)

// Executor runs random episodes
type Executor struct {
	NewEnv   EnvFactory
	Rng      *rand.Rand
	Sleep    time.Duration
	MaxSteps int
	Out      io.Writer // rendering target; nil disables rendering
	Log      logrus.FieldLogger
}

// pause sleeps for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (x *Executor) render(env *gym.Env) {
	if x.Out == nil {
		return
	}
	if err := env.Render(x.Out); err != nil {
		x.Log.WithError(err).Warn("render failed")
	}
}

// RunIteration plays one episode
func (x *Executor) RunIteration(ctx context.Context) (IterationResult, error) {
	env, err := x.NewEnv(x.Rng)
	if err != nil {
		return IterationResult{}, err
	}

	_, info := env.Reset()
	x.render(env)

	var res IterationResult
	if err := pause(ctx, x.Sleep); err != nil {
		res.Reason = StopCanceled
		return res, err
	}

	for {
		var movable []string
		for _, id := range env.VehicleIDs() {
			if len(info.AvailableMoves[id]) > 0 {
				movable = append(movable, id)
			}
		}
		if len(movable) == 0 {
			x.Log.Debug("no vehicles can move")
			res.Reason = StopNoMoves
			return res, nil
		}

		id := movable[x.Rng.IntN(len(movable))]
		moves := info.AvailableMoves[id]
		d := moves[x.Rng.IntN(len(moves))]

		action, err := env.ActionFor(id, d)
		if err != nil {
			return res, err
		}
		step, err := env.Step(action)
		if err != nil {
			return res, err
		}
		res.Steps++
		info = step.Info

		x.Log.WithFields(logrus.Fields{
			"step":         res.Steps,
			"vehicle":      id,
			"displacement": d,
			"reward":       step.Reward,
		}).Debug("moved vehicle")
		x.render(env)

		if err := pause(ctx, x.Sleep); err != nil {
			res.Reason = StopCanceled
			return res, err
		}

		switch {
		case step.Done:
			res.Solved = true
			res.Reason = StopSolved
			x.Log.WithField("steps", res.Steps).Debug("puzzle solved")
			// Extra pause for the solved puzzle
			if err := pause(ctx, x.Sleep); err != nil {
				return res, err
			}
			return res, nil
		case step.Truncated || (x.MaxSteps > 0 && res.Steps >= x.MaxSteps):
			x.Log.WithField("max_steps", x.MaxSteps).Debug("reached maximum steps without solving")
			res.Reason = StopMaxSteps
			return res, nil
		}
	}
}

// Run plays iterations episodes, stopping early if ctx is canceled
func (x *Executor) Run(ctx context.Context, iterations int) (Summary, error) {
	var summary Summary
	x.Log.WithFields(logrus.Fields{"iterations": iterations, "sleep": x.Sleep}).Info("starting iterations")

	for i := 0; i < iterations; i++ {
		log := x.Log.WithField("iteration", i+1)
		log.Debug("iteration started")

		res, err := x.RunIteration(ctx)
		summary.Iterations++
		summary.TotalSteps += res.Steps
		if res.Solved {
			summary.Solved++
		}
		if err != nil {
			return summary, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		log.WithFields(logrus.Fields{"steps": res.Steps, "reason": res.Reason}).Info("iteration finished")
	}

	x.Log.WithFields(logrus.Fields{
		"iterations":  summary.Iterations,
		"solved":      summary.Solved,
		"total_steps": summary.TotalSteps,
	}).Info("completed all iterations")
	return summary, nil
}

// envFactory loads the puzzle once and returns a factory that scrambles a
// fresh copy for every iteration
func envFactory(cmd *cli.Command) (EnvFactory, error) {
	scramble := int(cmd.Int("moves"))
	maxSteps := int(cmd.Int("max-steps"))

	var lot *engine.Lot
	if path := cmd.String("layout-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		lot, err = engine.ParseString(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		manager, err := config.NewManager(cmd.String("config-dir"))
		if err != nil {
			return nil, err
		}
		cfg, err := manager.LoadConfig(cmd.String("puzzle"))
		if err != nil {
			return nil, err
		}
		lot, err = engine.NewLotFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	}

	return func(rng *rand.Rand) (*gym.Env, error) {
		opts := []gym.Option{gym.WithMaxSteps(maxSteps)}
		if scramble > 0 {
			opts = append(opts, gym.WithScramble(scramble, rng))
		}
		return gym.NewEnvFromLot(lot, opts...), nil
	}, nil
}

// newCommand renders boards to out and writes logs to logOut
func newCommand(out, logOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "executor",
		Usage: "play random episodes of the parking lot environment",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "iterations", Value: 100, Usage: "number of episodes"},
			&cli.DurationFlag{Name: "sleep", Value: 100 * time.Millisecond, Usage: "pause between moves"},
			&cli.IntFlag{Name: "max-steps", Value: 200, Usage: "step budget per episode"},
			&cli.IntFlag{Name: "moves", Value: 60, Usage: "random moves applied to the layout before each episode"},
			&cli.StringFlag{Name: "puzzle", Value: config.DefaultConfigID, Usage: "puzzle id in the config directory"},
			&cli.StringFlag{Name: "layout-file", Usage: "plain text layout file, overrides --puzzle"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Sources: cli.EnvVars("CONFIG_DIR"), Usage: "directory containing puzzle *.json files"},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed; 0 picks one"},
			&cli.BoolFlag{Name: "quiet", Usage: "log per-episode summaries only and skip rendering"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logrus.New()
			log.SetOutput(logOut)
			log.SetLevel(logrus.DebugLevel)

			factory, err := envFactory(cmd)
			if err != nil {
				return err
			}

			seed := cmd.Uint64("seed")
			if seed == 0 {
				seed = rand.Uint64()
			}

			x := &Executor{
				NewEnv:   factory,
				Rng:      rand.New(rand.NewPCG(seed, seed)),
				Sleep:    cmd.Duration("sleep"),
				MaxSteps: int(cmd.Int("max-steps")),
				Out:      out,
				Log:      log.WithField("seed", seed),
			}
			if cmd.Bool("quiet") {
				x.Out = nil
				log.SetLevel(logrus.InfoLevel)
			}

			summary, err := x.Run(ctx, int(cmd.Int("iterations")))
			if errors.Is(err, context.Canceled) {
				log.WithField("iterations", summary.Iterations).Warn("execution interrupted by user")
				return nil
			}
			return err
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
