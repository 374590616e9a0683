package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/focus"
	"github.com/claude/liftlog/internal/models"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usage = `commands:
  list                      show exercises and sets
  w <ex> <set> <kg>         set weight
  r <ex> <set> <reps>       set reps
  d <ex> <set>              toggle done
  a <ex>                    add a set
  flush                     send pending edits now
  q                         quit
exercise and set numbers start at 1`

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "liftlog server URL")
	workoutID := flag.String("workout", "active", "workout id to log")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	verbose := flag.Bool("v", false, "debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-focus", Version)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	api := client.New(strings.TrimRight(*serverURL, "/"), client.WithTimeout(*timeout))

	current := 0
	sess := focus.New(api, *workoutID,
		focus.WithLogger(log),
		focus.WithOnAdvance(func(next int) { current = next }),
		focus.WithOnStateChange(func(st focus.State) {
			if st == focus.StateOffline {
				fmt.Println("! offline: edits are kept locally only")
			}
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := sess.Load(ctx)
	cancel()
	if err != nil {
		log.Error("load failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s [%s]\n%s\n", sess.Name(), sess.State(), usage)
	render(os.Stdout, sess, current)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", focus.FormatElapsed(sess.Elapsed()))
		if !in.Scan() {
			break
		}
		quit, err := run(sess, strings.Fields(in.Text()), &current)
		if err != nil {
			fmt.Println("error:", err)
		}
		if quit {
			break
		}
	}

	sess.Flush()
	sess.Close()
	sess.Wait()
	if sess.AllCompleted() {
		fmt.Println("workout complete")
	}
}

var errUsage = errors.New("bad command; type help")

func run(sess *focus.Session, args []string, current *int) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "q", "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Println(usage)
	case "list", "ls":
		render(os.Stdout, sess, *current)
	case "flush":
		sess.Flush()
	case "a":
		if len(args) != 2 {
			return false, errUsage
		}
		ex, err := index(args[1])
		if err != nil {
			return false, err
		}
		id, err := sess.AddSet(ex)
		if err != nil {
			return false, err
		}
		fmt.Println("added", id)
	case "d":
		if len(args) != 3 {
			return false, errUsage
		}
		ex, id, err := lookup(sess, args[1], args[2])
		if err != nil {
			return false, err
		}
		return false, sess.ToggleSetDone(ex, id)
	case "w", "r":
		if len(args) != 4 {
			return false, errUsage
		}
		ex, id, err := lookup(sess, args[1], args[2])
		if err != nil {
			return false, err
		}
		var patch models.SetPatch
		if args[0] == "w" {
			kg, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return false, fmt.Errorf("weight: %w", err)
			}
			patch.WeightKg = &kg
		} else {
			reps, err := strconv.Atoi(args[3])
			if err != nil {
				return false, fmt.Errorf("reps: %w", err)
			}
			patch.Reps = &reps
		}
		return false, sess.UpdateSetField(ex, id, patch)
	default:
		return false, errUsage
	}
	return false, nil
}

// index parses a 1-based number into a 0-based index.
func index(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n - 1, nil
}

func lookup(sess *focus.Session, exArg, setArg string) (int, focus.SetID, error) {
	ex, err := index(exArg)
	if err != nil {
		return 0, focus.SetID{}, err
	}
	pos, err := index(setArg)
	if err != nil {
		return 0, focus.SetID{}, err
	}
	exercises := sess.Exercises()
	if ex >= len(exercises) {
		return 0, focus.SetID{}, focus.ErrExerciseIndex
	}
	if pos >= len(exercises[ex].Sets) {
		return 0, focus.SetID{}, focus.ErrSetNotFound
	}
	return ex, exercises[ex].Sets[pos].ID, nil
}

func render(w io.Writer, sess *focus.Session, current int) {
	fmt.Fprintf(w, "%s  %s  [%s]\n", sess.Name(), focus.FormatElapsed(sess.Elapsed()), sess.State())
	for i, ex := range sess.Exercises() {
		marker := " "
		if i == current {
			marker = ">"
		}
		status := ""
		if ex.Completed() {
			status = " (done)"
		}
		fmt.Fprintf(w, "%s %d. %s%s\n", marker, i+1, ex.Name, status)
		for j, s := range ex.Sets {
			check := "[ ]"
			if s.Done {
				check = "[x]"
			}
			fmt.Fprintf(w, "     %d %s %gkg x %d\n", j+1, check, s.WeightKg, s.Reps)
		}
	}
}
