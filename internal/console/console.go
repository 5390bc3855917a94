// Package console is a line-oriented trainer front end over a workoutlog.Engine.
// Exercises and participants are addressed by their 1-based position in the
// session; sets by their 1-based set number in the focused bucket.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/workoutlog"
)

var errNoFocus = errors.New("no exercise focused; use: focus <ex#> <participant#>")

// Console reads commands and prints results and engine notices.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	log *slog.Logger

	eng          *workoutlog.Engine
	exercises    []models.SessionExercise
	participants []models.Participant

	lookups sync.WaitGroup
}

// New creates a console writing to out. Pass Notify to the engine with
// workoutlog.WithNotifier, then Attach the engine.
func New(out io.Writer, log *slog.Logger) *Console {
	return &Console{out: out, log: log}
}

// Attach binds the console to an engine.
func (c *Console) Attach(eng *workoutlog.Engine) {
	sess := eng.Session()
	exercises := append([]models.SessionExercise(nil), sess.Exercises...)
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].OrderInSession < exercises[j].OrderInSession
	})
	c.eng = eng
	c.exercises = exercises
	c.participants = sess.Participants
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Notify prints an engine notice. It is safe to call from any goroutine.
func (c *Console) Notify(n workoutlog.Notice) {
	switch {
	case n.Err != nil:
		c.printf("! %s: %v\n", n.Kind, n.Err)
	case n.SetNumber > 0:
		c.printf("* %s: set %d\n", n.Kind, n.SetNumber)
	case n.Count > 0:
		c.printf("* %s: %d sets\n", n.Kind, n.Count)
	default:
		c.printf("* %s\n", n.Kind)
	}
}

// Wait blocks until every history lookup started by focus has reported.
func (c *Console) Wait() {
	c.lookups.Wait()
}

// Run executes commands from in until quit, end of input or ctx is done.
// Command errors are printed and do not stop the loop. History lookups run
// in the background while further commands are read.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	if c.eng == nil {
		return errors.New("console: no engine attached")
	}
	defer c.Wait()
	c.show()

	scanner := bufio.NewScanner(in)
	for {
		c.printf("> ")
		if !scanner.Scan() {
			c.printf("\n")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := c.Exec(ctx, scanner.Text())
		if err != nil {
			c.log.Debug("command failed", "line", scanner.Text(), "error", err)
			c.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs one command line. It reports whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		c.Wait()
		if c.eng.Dirty() {
			c.printf("unsaved changes discarded\n")
		}
		return true, nil
	case "help":
		c.help()
		return false, nil
	case "show":
		c.show()
		return false, nil
	case "focus":
		return false, c.focus(ctx, args)
	case "add":
		return false, c.add(args)
	case "set":
		return false, c.set(args)
	case "rm":
		return false, c.remove(args)
	case "batch":
		return false, c.batch(args)
	case "save":
		return false, c.save(ctx, args)
	case "saveall":
		_, err := c.eng.SaveAll(ctx)
		return false, err
	case "rest":
		return false, c.rest(args)
	case "cancel":
		if !c.eng.CancelRest() {
			c.printf("no rest running\n")
		}
		return false, nil
	case "finish":
		return false, c.eng.Finish(ctx)
	default:
		return false, fmt.Errorf("unknown command %q; try help", cmd)
	}
}

func (c *Console) help() {
	c.printf(`commands:
  show                          session overview and focused sets
  focus <ex#> <participant#>    focus a bucket; history pre-fills it in the background
  add [reps] [weight]           append a set
  set <set#> <field> <value>    field is reps, weight, rpe (- clears) or notes
  rm <set#>                     remove a set
  batch [sets reps weight]      replace the bucket with identical sets
  save <set#>                   save one set now
  saveall                       save every set in the session
  rest [seconds]                start the rest countdown
  cancel                        stop the rest countdown
  finish                        save everything and end the session
  quit
`)
}

func (c *Console) show() {
	sess := c.eng.Session()
	c.printf("%s (%s)", sess.Name, sess.Date.Format("2006-01-02"))
	if c.eng.Finished() {
		c.printf(" [finished]")
	}
	if c.eng.Dirty() {
		c.printf(" [unsaved]")
	}
	c.printf("\n")

	active, hasActive := c.eng.Active()
	for i, ex := range c.exercises {
		mark := " "
		if hasActive && active.SessionExerciseID == ex.ID {
			mark = ">"
		}
		c.printf("%s %d. %s  %dx%d @ %s lbs\n", mark, i+1, ex.Name, ex.PlannedSets, ex.PlannedReps, formatWeight(ex.PlannedWeightLbs))
	}
	for i, p := range c.participants {
		mark := " "
		if hasActive && active.ParticipantID == p.ID {
			mark = ">"
		}
		c.printf("%s P%d. %s\n", mark, i+1, p.DisplayName)
	}

	if state, left := c.eng.Rest(); state == workoutlog.TimerRunning {
		c.printf("rest: %ds left\n", left)
	}
	if hasActive {
		c.printSets(active)
	}
}

func (c *Console) printSets(pair workoutlog.Pair) {
	logs, err := c.eng.Logs(pair.SessionExerciseID, pair.ParticipantID)
	if err != nil {
		c.printf("error: %v\n", err)
		return
	}
	if len(logs) == 0 {
		c.printf("  no sets\n")
		return
	}
	for _, e := range logs {
		c.printf("  set %d: %d reps @ %s lbs", e.SetNumber, e.RepsCompleted, formatWeight(e.WeightUsedLbs))
		if e.RPE != nil {
			c.printf(" rpe %d", *e.RPE)
		}
		if e.Notes != "" {
			c.printf(" (%s)", e.Notes)
		}
		c.printf("\n")
	}
}

func (c *Console) focus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: focus <ex#> <participant#>")
	}
	exIdx, err := position(args[0], len(c.exercises), "exercise")
	if err != nil {
		return err
	}
	pIdx, err := position(args[1], len(c.participants), "participant")
	if err != nil {
		return err
	}
	ex, p := c.exercises[exIdx], c.participants[pIdx]

	results, err := c.eng.StartFocus(ctx, ex.ID, p.ID)
	if err != nil {
		return err
	}
	report := func(res workoutlog.FocusResult) {
		if res.Err != nil {
			c.printf("error: %s / %s: %v\n", ex.Name, p.DisplayName, res.Err)
			return
		}
		c.printf("%s / %s: %s\n", ex.Name, p.DisplayName, res.Outcome)
		c.printSets(workoutlog.Pair{SessionExerciseID: ex.ID, ParticipantID: p.ID})
	}

	select {
	case res := <-results:
		report(res)
	default:
		c.printf("%s / %s: loading history\n", ex.Name, p.DisplayName)
		c.lookups.Add(1)
		go func() {
			defer c.lookups.Done()
			report(<-results)
		}()
	}
	return nil
}

func (c *Console) activePair() (workoutlog.Pair, error) {
	pair, ok := c.eng.Active()
	if !ok {
		return workoutlog.Pair{}, errNoFocus
	}
	return pair, nil
}

func (c *Console) add(args []string) error {
	pair, err := c.activePair()
	if err != nil {
		return err
	}
	var defaults workoutlog.SetDefaults
	if len(args) > 0 {
		reps, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		defaults.Reps = &reps
	}
	if len(args) > 1 {
		w, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("weight: %w", err)
		}
		defaults.WeightLbs = &w
	}

	entry, err := c.eng.AddSet(pair.SessionExerciseID, pair.ParticipantID, defaults)
	if err != nil {
		return err
	}
	c.printf("added set %d: %d reps @ %s lbs\n", entry.SetNumber, entry.RepsCompleted, formatWeight(entry.WeightUsedLbs))
	return nil
}

func (c *Console) set(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: set <set#> <field> <value>")
	}
	pair, err := c.activePair()
	if err != nil {
		return err
	}
	index, err := setIndex(args[0])
	if err != nil {
		return err
	}
	field, err := workoutlog.ParseField(args[1])
	if err != nil {
		return err
	}

	var value any
	raw := args[2]
	switch field {
	case workoutlog.FieldReps:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		value = n
	case workoutlog.FieldWeight:
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("weight: %w", err)
		}
		value = w
	case workoutlog.FieldRPE:
		if raw == "-" {
			value = nil
			break
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("rpe: %w", err)
		}
		value = n
	case workoutlog.FieldNotes:
		value = strings.Join(args[2:], " ")
	}

	if err := c.eng.UpdateSet(pair.SessionExerciseID, pair.ParticipantID, index, field, value); err != nil {
		return err
	}
	c.printSets(pair)
	return nil
}

func (c *Console) remove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm <set#>")
	}
	pair, err := c.activePair()
	if err != nil {
		return err
	}
	index, err := setIndex(args[0])
	if err != nil {
		return err
	}
	if err := c.eng.RemoveSet(pair.SessionExerciseID, pair.ParticipantID, index); err != nil {
		return err
	}
	c.printSets(pair)
	return nil
}

func (c *Console) batch(args []string) error {
	pair, err := c.activePair()
	if err != nil {
		return err
	}
	form := c.eng.BatchForm()
	switch len(args) {
	case 0:
	case 3:
		if form.SetCount, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("sets: %w", err)
		}
		if form.Reps, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("reps: %w", err)
		}
		if form.WeightLbs, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("weight: %w", err)
		}
	default:
		return errors.New("usage: batch [sets reps weight]")
	}

	if err := c.eng.GenerateBatch(pair.SessionExerciseID, pair.ParticipantID, form.SetCount, form.Reps, form.WeightLbs); err != nil {
		return err
	}
	c.printSets(pair)
	return nil
}

func (c *Console) save(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: save <set#>")
	}
	pair, err := c.activePair()
	if err != nil {
		return err
	}
	index, err := setIndex(args[0])
	if err != nil {
		return err
	}
	return c.eng.SaveSet(ctx, pair.SessionExerciseID, pair.ParticipantID, index)
}

func (c *Console) rest(args []string) error {
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("seconds: %w", err)
		}
		if err := c.eng.StartRestSeconds(n); err != nil {
			return err
		}
		c.printf("resting %ds\n", n)
		return nil
	}

	pair, err := c.activePair()
	if err != nil {
		return err
	}
	n, err := c.eng.StartRest(pair.SessionExerciseID)
	if err != nil {
		return err
	}
	c.printf("resting %ds\n", n)
	return nil
}

// position converts a 1-based position to an index.
func position(s string, n int, what string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("%s must be 1-%d, got %q", what, n, s)
	}
	return i - 1, nil
}

func setIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return 0, fmt.Errorf("set number must be >= 1, got %q", s)
	}
	return i - 1, nil
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
