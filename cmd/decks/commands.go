package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/platform/sqlstore"
	"github.com/phrazzld/scry-decks/internal/scheduler"
	"github.com/phrazzld/scry-decks/internal/service/review"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Run schema migrations on the configured SQL backend",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{sqlstore.MigrateUp, sqlstore.MigrateDown, sqlstore.MigrateStatus, sqlstore.MigrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := sqlstore.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}
			app, err := newApplication(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.migrate(cmd.Context(), command)
		},
	}
}

// loadSummary is the output of the load command.
type loadSummary struct {
	Counts   map[string]int `json:"counts"`
	Skipped  int            `json:"skipped"`
	Repaired int            `json:"repaired"`
	Removed  int            `json:"removed"`
}

func newLoadCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load every record and report what the store holds",
		Long: `Load every record into memory, repairing records whose layout no
longer matches the registered embedding rules, and print per-doctype counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			summary := loadSummary{
				Counts:   res.Counts,
				Skipped:  res.Skipped,
				Repaired: res.Repair.Persisted,
				Removed:  res.Repair.Deleted,
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(summary, func(w io.Writer) {
				fmt.Fprintln(w, "loaded:")
				writeCounts(w, summary.Counts)
				fmt.Fprintf(w, "skipped: %d\nrepaired: %d\nremoved: %d\n",
					summary.Skipped, summary.Repaired, summary.Removed)
			})
		},
	}
}

// createdDeck is the output of the create-deck command.
type createdDeck struct {
	DeckID     string `json:"deck_id"`
	NoteTypeID string `json:"note_type_id"`
}

func newCreateDeckCommand(opts *rootOptions) *cobra.Command {
	var fields, templates []string
	var noteType string

	cmd := &cobra.Command{
		Use:   "create-deck <name>",
		Short: "Create a deck with one note type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.load(ctx); err != nil {
				return err
			}

			deck, err := domain.NewDeck("", args[0])
			if err != nil {
				return err
			}
			if err := app.store.SetObject(deck, true); err != nil {
				return err
			}
			nt, err := deck.CreateNoteType(noteType)
			if err != nil {
				return err
			}
			for _, name := range fields {
				if _, err := nt.AddField(name); err != nil {
					return err
				}
			}
			for _, name := range templates {
				if _, err := nt.AddTemplate(name); err != nil {
					return err
				}
			}
			if _, err := scheduler.ForDeck(deck, app.settings); err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}

			out := createdDeck{DeckID: deck.ID(), NoteTypeID: nt.ID()}
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "deck: %s\nnote type: %s\n", out.DeckID, out.NoteTypeID)
			})
		},
	}

	cmd.Flags().StringVar(&noteType, "note-type", "Basic", "name of the note type")
	cmd.Flags().StringSliceVar(&fields, "field", []string{"Front", "Back"}, "note field names")
	cmd.Flags().StringSliceVar(&templates, "template", []string{"Forward"}, "card template names")
	return cmd
}

// addedNote is the output of the add-note command.
type addedNote struct {
	NoteID  string   `json:"note_id"`
	CardIDs []string `json:"card_ids"`
}

func newAddNoteCommand(opts *rootOptions) *cobra.Command {
	var order int

	cmd := &cobra.Command{
		Use:   "add-note <note-type-id> <Field=value>...",
		Short: "Add a note and create its cards",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.load(ctx); err != nil {
				return err
			}

			obj, ok := app.store.Get(args[0])
			nt, isNoteType := obj.(*domain.NoteType)
			if !ok || !isNoteType {
				return fmt.Errorf("%w: %s", domain.ErrNoteTypeNotFound, args[0])
			}
			note, err := nt.CreateNote()
			if err != nil {
				return err
			}
			for name, value := range values {
				if err := note.SetField(name, value); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("order") {
				note.SetOrder(order)
			}
			if err := app.persist(ctx); err != nil {
				return err
			}

			cards, err := note.Cards()
			if err != nil {
				return err
			}
			out := addedNote{NoteID: note.ID()}
			for _, c := range cards {
				out.CardIDs = append(out.CardIDs, c.ID())
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "note: %s\n", out.NoteID)
				for _, id := range out.CardIDs {
					fmt.Fprintf(w, "card: %s\n", id)
				}
			})
		},
	}

	cmd.Flags().IntVar(&order, "order", 0, "explicit position among new cards")
	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <deck-id>",
		Short: "Count due and upcoming cards of a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.load(ctx); err != nil {
				return err
			}

			stats, err := app.reviewService().Statistics(ctx, args[0])
			if err != nil {
				return err
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(stats, func(w io.Writer) {
				fmt.Fprintf(w, "due: %d new, %d seen\n", stats.Due.New, stats.Due.Seen)
				fmt.Fprintf(w, "not due: %d new, %d seen\n", stats.NotDue.New, stats.NotDue.Seen)
			})
		},
	}
}

// nextCard is the output of the next command.
type nextCard struct {
	CardID   string            `json:"card_id"`
	NoteID   string            `json:"note_id"`
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

func newNextCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next <deck-id>",
		Short: "Show the card to study next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.load(ctx); err != nil {
				return err
			}

			card, err := app.reviewService().NextCard(ctx, args[0])
			if err != nil {
				return err
			}
			out := nextCard{CardID: card.ID(), NoteID: card.NoteID, Fields: map[string]string{}}
			if tmpl, ok := card.Template(); ok {
				out.Template = tmpl.Name
			}
			if note, ok := card.Note(); ok {
				if nt, ok := note.NoteType(); ok {
					for _, field := range nt.Fields() {
						if value, err := note.Field(field.Name); err == nil {
							out.Fields[field.Name] = value
						}
					}
				}
			}
			if err := app.persist(ctx); err != nil {
				return err
			}
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "card: %s (%s)\n", out.CardID, out.Template)
				writeFields(w, out.Fields)
			})
		},
	}
}

// ratedCard is the output of the rate command.
type ratedCard struct {
	CardID string    `json:"card_id"`
	Due    time.Time `json:"due"`
	Reps   int       `json:"reps"`
	Lapses int       `json:"lapses"`
}

func newRateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <deck-id> <card-id> <rating>",
		Short: "Record an answer: <=0 again, <0.5 hard, <1 good, >=1 easy",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid rating %q: %w", args[2], err)
			}
			ctx := cmd.Context()
			app, err := newApplication(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()
			if _, err := app.load(ctx); err != nil {
				return err
			}

			state, err := app.reviewService().SubmitAnswer(ctx, args[0], args[1], review.ReviewAnswer{Rating: rating})
			if err != nil {
				return err
			}
			out := ratedCard{CardID: args[1], Due: state.Due, Reps: state.Reps, Lapses: state.Lapses}
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "card: %s\ndue: %s\nreps: %d\n", out.CardID, out.Due.Format(time.RFC3339), out.Reps)
			})
		},
	}
}
