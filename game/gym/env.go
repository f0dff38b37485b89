package gym

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/wricardo/parking-lot-game/game/engine"
)

const (
	RewardSolved  = 0.0
	RewardMove    = -1.0
	RewardInvalid = -2.0

	// vehicleOffset is the observation value of the first vehicle
	vehicleOffset = 2
)

// ErrInvalidAction is returned for an action whose vehicle number is outside the action space
var ErrInvalidAction = errors.New("invalid action")

// Observation is an H×W grid of cell codes
type Observation [][]int32

// Action moves vehicle number Vehicle (2+index) by Steps cells
type Action struct {
	Vehicle int `json:"vehicle"`
	Steps   int `json:"steps"`
}

// Info carries auxiliary data returned by Reset and Step
type Info struct {
	AvailableMoves map[string][]int `json:"available_moves"`
	Error          string           `json:"error,omitempty"`
	Steps          int              `json:"steps"`
}

// StepResult is the outcome of one Step
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Done        bool        `json:"done"`
	Truncated   bool        `json:"truncated"`
	Info        Info        `json:"info"`
}

// Env owns one puzzle instance and the index mapping used by actions
type Env struct {
	start    *engine.Lot
	lot      *engine.Lot
	ids      []string
	maxSteps int
	steps    int
}

type envOptions struct {
	parse    []engine.ParseOption
	maxSteps int
	scramble int
	rng      *rand.Rand
}

// Option configures an Env
type Option func(*envOptions)

// WithMaxSteps truncates an episode after n steps; 0 disables truncation
func WithMaxSteps(n int) Option {
	return func(o *envOptions) { o.maxSteps = n }
}

// WithParseOptions forwards layout parser options
func WithParseOptions(opts ...engine.ParseOption) Option {
	return func(o *envOptions) { o.parse = append(o.parse, opts...) }
}

// WithScramble applies n random legal moves to the layout before the first episode.
// Every Reset returns to the scrambled position.
func WithScramble(n int, rng *rand.Rand) Option {
	return func(o *envOptions) {
		o.scramble = n
		o.rng = rng
	}
}

// NewEnv parses layout and builds an environment around it
func NewEnv(layout string, opts ...Option) (*Env, error) {
	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}
	lot, err := engine.ParseString(layout, o.parse...)
	if err != nil {
		return nil, fmt.Errorf("gym: %w", err)
	}
	return newEnv(lot, o), nil
}

// NewEnvFromLot builds an environment whose episodes start from a copy of lot
func NewEnvFromLot(lot *engine.Lot, opts ...Option) *Env {
	var o envOptions
	for _, opt := range opts {
		opt(&o)
	}
	return newEnv(lot.Clone(), o)
}

func newEnv(lot *engine.Lot, o envOptions) *Env {
	if o.scramble > 0 {
		rng := o.rng
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		engine.Scramble(lot, o.scramble, rng)
	}
	env := &Env{
		start:    lot,
		ids:      lot.VehicleIDs(),
		maxSteps: o.maxSteps,
	}
	env.Reset()
	return env
}

// VehicleIDs returns the identifiers addressed by vehicle numbers 2, 3, ...
func (e *Env) VehicleIDs() []string {
	return append([]string(nil), e.ids...)
}

// ActionSpace returns the number of vehicles and the largest displacement magnitude
func (e *Env) ActionSpace() (vehicles, steps int) {
	w, h := e.lot.Dimensions()
	return len(e.ids), max(w, h)
}

// ObservationHigh returns the largest value an observation cell can hold
func (e *Env) ObservationHigh() int32 {
	return int32(len(e.ids) + 1)
}

// ActionFor converts a vehicle identifier and displacement into an Action
func (e *Env) ActionFor(id string, steps int) (Action, error) {
	for i, v := range e.ids {
		if v == id {
			return Action{Vehicle: i + vehicleOffset, Steps: steps}, nil
		}
	}
	return Action{}, fmt.Errorf("%w: unknown vehicle %q", ErrInvalidAction, id)
}

// Lot returns a copy of the current puzzle instance
func (e *Env) Lot() *engine.Lot {
	return e.lot.Clone()
}

// Reset starts a new episode from the initial position
func (e *Env) Reset() (Observation, Info) {
	e.lot = e.start.Clone()
	e.steps = 0
	return Encode(e.lot), e.info("")
}

// Step applies an action. Illegal moves are penalized, not returned as errors;
// the error return is reserved for actions outside the action space.
func (e *Env) Step(a Action) (StepResult, error) {
	i := a.Vehicle - vehicleOffset
	if i < 0 || i >= len(e.ids) {
		return StepResult{}, fmt.Errorf("%w: vehicle %d, valid range is %d..%d",
			ErrInvalidAction, a.Vehicle, vehicleOffset, len(e.ids)+vehicleOffset-1)
	}

	e.steps++
	res := StepResult{}
	if _, err := e.lot.Move(e.ids[i], a.Steps); err != nil {
		res.Reward = RewardInvalid
		res.Info = e.info(engine.MoveErrorCode(err))
	} else {
		res.Done = e.lot.IsSolved()
		res.Reward = RewardMove
		if res.Done {
			res.Reward = RewardSolved
		}
		res.Info = e.info("")
	}
	res.Truncated = !res.Done && e.maxSteps > 0 && e.steps >= e.maxSteps
	res.Observation = Encode(e.lot)
	return res, nil
}

func (e *Env) info(code string) Info {
	return Info{
		AvailableMoves: e.lot.LegalMoves(),
		Error:          code,
		Steps:          e.steps,
	}
}

// Render writes the current grid as text
func (e *Env) Render(w io.Writer) error {
	_, err := fmt.Fprintln(w, e.lot.String())
	return err
}

// Encode converts a lot into the integer observation used by Env
func Encode(lot *engine.Lot) Observation {
	index := make(map[string]int32)
	for i, id := range lot.VehicleIDs() {
		index[id] = int32(i + vehicleOffset)
	}

	w, h := lot.Dimensions()
	obs := make(Observation, h)
	for y := range obs {
		obs[y] = make([]int32, w)
		for x := range obs[y] {
			cell, _ := lot.CellAt(x, y)
			switch cell.Kind {
			case engine.WallCell:
				obs[y][x] = 1
			case engine.VehicleCell:
				obs[y][x] = index[cell.Vehicle]
			}
		}
	}
	return obs
}
