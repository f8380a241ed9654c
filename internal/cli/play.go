package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/file"
	"quiz-session-service/internal/infra/memory"
)

// NewPlayCmd runs a quiz in the terminal. Progress is kept in a file so an
// interrupted game resumes on the next run.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		user    string
		restart bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			b := &backend{
				slots:    file.Slots(dataDir(cfg)),
				sessions: memory.NewSessionRegistry(),
			}
			service := newService(cfg, b)

			ctx := cmd.Context()
			session, err := service.Start(ctx, user)
			if err != nil {
				return err
			}
			defer service.Leave(context.Background(), user)
			if restart {
				if err := session.Reset(ctx); err != nil {
					return err
				}
			}
			return play(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", "player", "name the saved progress is kept under")
	cmd.Flags().BoolVar(&restart, "restart", false, "discard saved progress and start a new attempt")
	return cmd
}

const playHelp = "Enter a number to answer, n/p to move, g N to jump, s to submit, r to restart, q to quit."

// play drives session from line-oriented input until it is submitted or the
// user quits.
func play(ctx context.Context, session *app.Session, in io.Reader, out io.Writer) error {
	updates, cancel := session.Subscribe()
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	last := renderKey{index: -1}
	// show renders snap when it changes what the player sees and reports
	// whether the quiz is over.
	show := func(snap domain.Snapshot) bool {
		if snap.IsSubmitted && snap.Report != nil {
			if snap.Report.TimedOut {
				fmt.Fprintln(out, "Time's up! Your answers were submitted.")
			}
			printReport(out, snap)
			return true
		}
		if snap.Phase != domain.PhaseActive {
			last = renderKey{index: -1}
			return false
		}
		if key := keyOf(snap); key != last {
			last = key
			printQuestion(out, snap)
		}
		return false
	}

	// Subscribe always delivers the current state first.
	if snap, ok := <-updates; !ok || show(snap) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok || show(snap) {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "Progress saved. Run play again to resume.")
				return nil
			}
			quit := command(ctx, session, line, out)
			if snap := session.Snapshot(); snap.IsSubmitted && snap.Report != nil {
				printReport(out, snap)
				return nil
			}
			if quit {
				fmt.Fprintln(out, "Progress saved. Run play again to resume.")
				return nil
			}
		}
	}
}

// command applies one line of input and reports whether the user wants to quit.
func command(ctx context.Context, session *app.Session, line string, out io.Writer) bool {
	snap := session.Snapshot()
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	var err error
	switch cmd := strings.ToLower(fields[0]); {
	case cmd == "q":
		return true
	case cmd == "n":
		err = session.Navigate(snap.CurrentIndex + 1)
	case cmd == "p":
		err = session.Navigate(snap.CurrentIndex - 1)
	case cmd == "g" && len(fields) == 2:
		var n int
		if n, err = strconv.Atoi(fields[1]); err == nil {
			err = session.Navigate(n - 1)
		}
	case cmd == "s":
		_, err = session.Submit(ctx)
	case cmd == "r":
		err = session.Reset(ctx)
	default:
		n, convErr := strconv.Atoi(cmd)
		if convErr != nil || len(snap.Questions) == 0 {
			fmt.Fprintln(out, playHelp)
			return false
		}
		choices := snap.Questions[snap.CurrentIndex].Choices()
		if n < 1 || n > len(choices) {
			fmt.Fprintf(out, "Pick a number between 1 and %d.\n", len(choices))
			return false
		}
		err = session.SelectAnswer(snap.CurrentIndex, choices[n-1])
	}
	if err != nil {
		fmt.Fprintf(out, "Cannot do that: %v\n", err)
	}
	return false
}

type renderKey struct {
	index    int
	answered int
	answer   string
}

func keyOf(snap domain.Snapshot) renderKey {
	return renderKey{
		index:    snap.CurrentIndex,
		answered: snap.AnsweredCount,
		answer:   snap.Answers[snap.CurrentIndex],
	}
}

func printQuestion(out io.Writer, snap domain.Snapshot) {
	if len(snap.Questions) == 0 {
		return
	}
	q := snap.Questions[snap.CurrentIndex]
	fmt.Fprintf(out, "\nQuestion %d/%d", snap.CurrentIndex+1, len(snap.Questions))
	if q.Category != "" {
		fmt.Fprintf(out, " [%s]", q.Category)
	}
	fmt.Fprintf(out, " (%s left", clock(snap.TimeRemaining))
	if snap.TimeLevel != domain.TimeNormal {
		fmt.Fprintf(out, ", %s", snap.TimeLevel)
	}
	fmt.Fprintln(out, ")")
	fmt.Fprintln(out, q.Text)
	selected := snap.Answers[snap.CurrentIndex]
	for i, choice := range q.Choices() {
		mark := " "
		if choice == selected {
			mark = "*"
		}
		fmt.Fprintf(out, " %s %d) %s\n", mark, i+1, choice)
	}
	fmt.Fprintf(out, "Answered %d/%d. %s\n", snap.AnsweredCount, len(snap.Questions), playHelp)
}

func printReport(out io.Writer, snap domain.Snapshot) {
	r := snap.Report
	fmt.Fprintf(out, "\nResult: %d/%d correct (%d%%) - %s\n", r.CorrectAnswers, r.TotalQuestions, r.Percentage, r.Band)
	fmt.Fprintf(out, "Time taken: %s\n", clock(r.TimeTaken))
	for _, row := range r.Breakdown {
		mark := "[ ]"
		if row.Correct {
			mark = "[x]"
		}
		selected := row.Selected
		if !row.Answered {
			selected = "(no answer)"
		}
		fmt.Fprintf(out, "%s %d. %s\n    your answer: %s, correct: %s\n", mark, row.Index+1, row.Question, selected, row.CorrectAnswer)
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
