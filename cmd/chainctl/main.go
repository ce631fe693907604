// Command chainctl manages chains and reports dubbing progress against the
// fabricator database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/app"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/services"
)

const usage = `usage: chainctl <command> [flags]

commands:
  create   -name -type -embed -config    create a DRAFT chain
  state    -id -to                       move a chain to READY, FABRICATE, COMPLETE or FAILED
  revive   -id -reason                   replace a stuck chain with a fresh one
  destroy  -id                           delete a chain and its segments
  status   -id | -embed                  print a chain and its last segments
  dubbing  -segment                      mark a segment DUBBING
  dubbed   -segment -key                 mark a segment DUBBED with its storage key
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx := context.Background()
	a, err := app.NewCore(ctx, app.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a.Services, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "chainctl %s: %v\n", os.Args[1], err)
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, svc app.Services, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	id := fs.String("id", "", "chain id")
	segment := fs.String("segment", "", "segment id")
	name := fs.String("name", "", "chain name")
	chainType := fs.String("type", string(types.ChainTypeProduction), "PRODUCTION or PREVIEW")
	embed := fs.String("embed", "", "embed key")
	configPath := fs.String("config", "", "template config override file (YAML)")
	to := fs.String("to", "", "target chain state")
	reason := fs.String("reason", "", "reason recorded with the change")
	key := fs.String("key", "", "storage key of the dubbed audio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	now := time.Now().UTC()

	switch cmd {
	case "create":
		var cfg []byte
		if *configPath != "" {
			b, err := os.ReadFile(*configPath)
			if err != nil {
				return err
			}
			cfg = b
		}
		c, err := svc.Chains.Create(ctx, services.CreateChainInput{
			AccountID:  uuid.New(),
			TemplateID: uuid.New(),
			Name:       *name,
			Type:       types.ChainType(strings.ToUpper(*chainType)),
			EmbedKey:   *embed,
			Config:     cfg,
			Now:        now,
		})
		if err != nil {
			return err
		}
		return printJSON(c)
	case "state":
		chainID, err := parseID("id", *id)
		if err != nil {
			return err
		}
		c, err := svc.Chains.UpdateState(ctx, chainID, types.ChainState(strings.ToUpper(*to)), now)
		if err != nil {
			return err
		}
		return printJSON(c)
	case "revive":
		chainID, err := parseID("id", *id)
		if err != nil {
			return err
		}
		c, err := svc.Chains.Revive(ctx, chainID, *reason, now)
		if err != nil {
			return err
		}
		return printJSON(c)
	case "destroy":
		chainID, err := parseID("id", *id)
		if err != nil {
			return err
		}
		return svc.Chains.Destroy(ctx, chainID)
	case "status":
		var c *types.Chain
		var err error
		if *embed != "" {
			c, err = svc.Chains.GetByEmbedKey(ctx, *embed)
		} else {
			var chainID uuid.UUID
			if chainID, err = parseID("id", *id); err == nil {
				c, err = svc.Chains.Get(ctx, chainID)
			}
		}
		if err != nil {
			return err
		}
		last, err := svc.Segments.GetLast(ctx, c.ID)
		if err != nil {
			return err
		}
		var recent []*types.Segment
		if last != nil {
			from := last.Offset - 9
			if from < 0 {
				from = 0
			}
			if recent, err = svc.Segments.List(ctx, c.ID, from, 10); err != nil {
				return err
			}
		}
		return printJSON(map[string]any{"chain": c, "segments": recent})
	case "dubbing":
		segID, err := parseID("segment", *segment)
		if err != nil {
			return err
		}
		return svc.Segments.MarkDubbing(ctx, segID)
	case "dubbed":
		segID, err := parseID("segment", *segment)
		if err != nil {
			return err
		}
		return svc.Segments.MarkDubbed(ctx, segID, *key)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseID(flagName, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("-%s must be a uuid", flagName)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
