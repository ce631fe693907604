// Command craft_preview fabricates a preview chain against a library file in
// an in-memory store and prints what each segment picked.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/app"
	"github.com/yungbote/fabricator/internal/data/db"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/services"
)

func main() {
	var (
		libraryPath string
		configPath  string
		count       int
		showPicks   bool
	)
	flag.StringVar(&libraryPath, "library", "", "library YAML file (default: built-in sample)")
	flag.StringVar(&configPath, "config", "", "chain template config override (YAML)")
	flag.IntVar(&count, "segments", 8, "number of segments to fabricate")
	flag.BoolVar(&showPicks, "picks", false, "print every pick")
	flag.Parse()

	if err := run(libraryPath, configPath, count, showPicks); err != nil {
		fmt.Fprintf(os.Stderr, "craft_preview: %v\n", err)
		os.Exit(1)
	}
}

func run(libraryPath, configPath string, count int, showPicks bool) error {
	ctx := context.Background()
	cfg := app.LoadConfig()
	cfg.DB = db.Config{Driver: db.DriverSQLite, SQLitePath: "file::memory:"}
	cfg.LibraryPath = libraryPath
	cfg.RedisAddr = ""
	cfg.Lifecycle.StartLead = 0

	a, err := app.NewCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var chainConfig []byte
	if configPath != "" {
		if chainConfig, err = os.ReadFile(configPath); err != nil {
			return err
		}
	}
	templateID := a.Library.TemplateID
	if templateID == uuid.Nil {
		templateID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Second)
	chains := a.Services.Chains
	chain, err := chains.Create(ctx, services.CreateChainInput{
		AccountID:  uuid.New(),
		TemplateID: templateID,
		Name:       "craft preview",
		Type:       types.ChainTypePreview,
		Config:     chainConfig,
		Now:        now,
	})
	if err != nil {
		return err
	}
	for _, to := range []types.ChainState{types.ChainStateReady, types.ChainStateFabricate} {
		if chain, err = chains.UpdateState(ctx, chain.ID, to, now); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "OFFSET\tTYPE\tKEY\tTEMPO\tTOTAL\tDENSITY\tBEGIN\tPICKS\tMISSING")

	clock := chain.StartAt
	for crafted := 0; crafted < count; {
		res, err := a.Services.Fabrication.FabricateNext(ctx, chain.ID, clock)
		if err != nil {
			return err
		}
		switch res.Outcome {
		case services.OutcomeCrafted:
			crafted++
			seg := res.Segment
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%d\t%.2f\t%s\t%d\t%d\n",
				seg.Offset, seg.Type, seg.Key, seg.Tempo, seg.Total, seg.Density,
				seg.BeginAt.Sub(chain.StartAt).Round(time.Millisecond), res.Picks, res.Missing)
			if showPicks {
				if err := printPicks(ctx, tw, a, seg.ID); err != nil {
					return err
				}
			}
		case services.OutcomeAhead, services.OutcomeWaiting:
			// Nobody plays the chain back here, so jump the clock to the end of the buffer.
			if res.Segment != nil && res.Segment.EndAt != nil {
				clock = *res.Segment.EndAt
			} else {
				clock = clock.Add(time.Second)
			}
		default:
			fmt.Fprintf(tw, "chain stopped: %s\n", res.Outcome)
			return nil
		}
	}
	return nil
}

func printPicks(ctx context.Context, tw *tabwriter.Writer, a *app.App, segmentID uuid.UUID) error {
	picks, err := a.Repos.Craft.ListPicks(dbctx.Context{Ctx: ctx}, []uuid.UUID{segmentID})
	if err != nil {
		return err
	}
	for _, p := range picks {
		fmt.Fprintf(tw, "\t  %s\t%s\t@%s\t+%s\tamp %.2f\t\t\t\n",
			p.Event, p.Tones,
			time.Duration(p.StartAtSegmentMicros)*time.Microsecond,
			time.Duration(p.LengthMicros)*time.Microsecond,
			p.Amplitude)
	}
	return nil
}
