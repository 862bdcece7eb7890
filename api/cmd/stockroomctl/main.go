// Command stockroomctl drives the Stockroom API through the sealed channel.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"stockroom/api/internal/client"
	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/infrastructure/crypto"
)

const usage = `usage: stockroomctl [-api URL] [-passphrase P] <command> [args]

commands:
  groups   list | get ID | create -name N [-description D] | update ID -name N [-description D] | delete ID
  products list [-group ID] | get ID | create -group ID -name N [...] | update ID -group ID -name N [...] | delete ID
  stock    add ID AMOUNT | sell ID AMOUNT
  search   [QUERY]        (no query: interactive search-as-you-type over stdin)
  stats    [-group ID]
  events                  (follow live inventory events)
  seal                    (stdin plaintext -> wire payload)
  open                    (stdin wire payload -> plaintext)
`

type app struct {
	api    *client.Client
	sealer domain.Sealer
	in     io.Reader
	out    io.Writer
}

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("stockroomctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	apiURL := fs.String("api", envOr("STOCKROOM_API", "http://localhost:8000/api"), "API base URL")
	passphrase := fs.String("passphrase", envOr("CHANNEL_PASSPHRASE", crypto.DefaultPassphrase), "sealed channel passphrase")
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	channel, err := crypto.NewChannel(*passphrase)
	if err != nil {
		fatal(err)
	}

	a := &app{
		api:    client.New(*apiURL, client.WithSealer(channel)),
		sealer: channel,
		in:     os.Stdin,
		out:    os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		fatal(err)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "groups":
		return a.groups(ctx, args)
	case "products":
		return a.products(ctx, args)
	case "stock":
		return a.stock(ctx, args)
	case "search":
		return a.search(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "events":
		return a.events(ctx)
	case "seal":
		return a.transform(a.sealer.Seal)
	case "open":
		return a.transform(a.sealer.Open)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// ==============================================================================
// Groups
// ==============================================================================

func (a *app) groups(ctx context.Context, args []string) error {
	sub, rest := split(args, "list")

	switch sub {
	case "list":
		groups, err := a.api.ListGroups(ctx)
		if err != nil {
			return err
		}
		a.printGroups(groups...)
		return nil

	case "get":
		id, err := needID(rest)
		if err != nil {
			return err
		}
		g, err := a.api.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		a.printGroups(*g)
		return nil

	case "create", "update":
		var id int64
		if sub == "update" {
			var err error
			if id, err = needID(rest); err != nil {
				return err
			}
			rest = rest[1:]
		}

		fs := flag.NewFlagSet("groups "+sub, flag.ContinueOnError)
		name := fs.String("name", "", "group name")
		desc := fs.String("description", "", "group description")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		in := domain.ProductGroup{Name: *name, Description: *desc}
		var g *domain.ProductGroup
		var err error
		if sub == "create" {
			g, err = a.api.CreateGroup(ctx, in)
		} else {
			g, err = a.api.UpdateGroup(ctx, id, in)
		}
		if err != nil {
			return err
		}
		a.printGroups(*g)
		return nil

	case "delete":
		id, err := needID(rest)
		if err != nil {
			return err
		}
		if err := a.api.DeleteGroup(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "group %d deleted (with its products)\n", id)
		return nil
	}
	return fmt.Errorf("unknown groups command %q", sub)
}

// ==============================================================================
// Products
// ==============================================================================

func (a *app) products(ctx context.Context, args []string) error {
	sub, rest := split(args, "list")

	switch sub {
	case "list":
		fs := flag.NewFlagSet("products list", flag.ContinueOnError)
		group := fs.Int64("group", 0, "only products of this group")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		products, err := a.api.ListProducts(ctx, *group)
		if err != nil {
			return err
		}
		a.printProducts(products...)
		return nil

	case "get":
		id, err := needID(rest)
		if err != nil {
			return err
		}
		p, err := a.api.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		a.printProducts(*p)
		return nil

	case "create", "update":
		var id int64
		if sub == "update" {
			var err error
			if id, err = needID(rest); err != nil {
				return err
			}
			rest = rest[1:]
		}

		fs := flag.NewFlagSet("products "+sub, flag.ContinueOnError)
		group := fs.Int64("group", 0, "owning group id")
		name := fs.String("name", "", "product name")
		desc := fs.String("description", "", "product description")
		manufacturer := fs.String("manufacturer", "", "manufacturer")
		quantity := fs.Int64("quantity", 0, "units in stock")
		price := fs.Float64("price", 0, "unit price")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		in := domain.Product{
			GroupID:      *group,
			Name:         *name,
			Description:  *desc,
			Manufacturer: *manufacturer,
			Quantity:     *quantity,
			Price:        *price,
		}
		var p *domain.Product
		var err error
		if sub == "create" {
			p, err = a.api.CreateProduct(ctx, in)
		} else {
			p, err = a.api.UpdateProduct(ctx, id, in)
		}
		if err != nil {
			return err
		}
		a.printProducts(*p)
		return nil

	case "delete":
		id, err := needID(rest)
		if err != nil {
			return err
		}
		if err := a.api.DeleteProduct(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "product %d deleted\n", id)
		return nil
	}
	return fmt.Errorf("unknown products command %q", sub)
}

func (a *app) stock(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: stock add|sell ID AMOUNT")
	}
	id, err := needID(args[1:])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[2])
	}

	var p *domain.Product
	switch args[0] {
	case "add":
		p, err = a.api.AddStock(ctx, id, amount)
	case "sell":
		p, err = a.api.SellStock(ctx, id, amount)
	default:
		return fmt.Errorf("unknown stock command %q", args[0])
	}
	if err != nil {
		return err
	}
	a.printProducts(*p)
	return nil
}

// ==============================================================================
// Search, statistics, events
// ==============================================================================

func (a *app) search(ctx context.Context, args []string) error {
	if len(args) > 0 {
		products, err := a.api.SearchProducts(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		a.printProducts(products...)
		return nil
	}

	fmt.Fprintln(a.out, "type to search, one query per line (Ctrl-D to quit)")
	s := client.NewSearcher(a.api, client.DefaultSearchDelay, func(q string, products []domain.Product, err error) {
		if err != nil {
			fmt.Fprintf(a.out, "search %q failed: %v\n", q, err)
			return
		}
		fmt.Fprintf(a.out, "-- %d result(s) for %q\n", len(products), q)
		a.printProducts(products...)
	})
	defer s.Close()

	lines := bufio.NewScanner(a.in)
	for lines.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.Query(lines.Text())
	}
	return lines.Err()
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	group := fs.Int64("group", 0, "only this group")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var total float64
	var err error
	if *group > 0 {
		total, err = a.api.GroupTotalValue(ctx, *group)
	} else {
		total, err = a.api.TotalValue(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total value: %.2f\n", total)
	return nil
}

func (a *app) events(ctx context.Context) error {
	return a.api.Events(ctx, func(e domain.Event) {
		line := fmt.Sprintf("%s %-16s", e.At.Format("15:04:05"), e.Type)
		if e.GroupID != 0 {
			line += fmt.Sprintf(" group=%d", e.GroupID)
		}
		if e.ProductID != 0 {
			line += fmt.Sprintf(" product=%d", e.ProductID)
		}
		if e.Quantity != nil {
			line += fmt.Sprintf(" quantity=%d", *e.Quantity)
		}
		fmt.Fprintln(a.out, line)
	})
}

// transform applies fn to the whole of stdin, ignoring surrounding whitespace.
func (a *app) transform(fn func(string) (string, error)) error {
	raw, err := io.ReadAll(a.in)
	if err != nil {
		return err
	}
	out, err := fn(strings.TrimSpace(string(raw)))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, out)
	return nil
}

// ==============================================================================
// Output helpers
// ==============================================================================

func (a *app) printGroups(groups ...domain.ProductGroup) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, g := range groups {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.Name, g.Description)
	}
	tw.Flush()
}

func (a *app) printProducts(products ...domain.Product) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGROUP\tNAME\tMANUFACTURER\tQTY\tPRICE\tVALUE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%.2f\t%.2f\n",
			p.ID, p.GroupID, p.Name, p.Manufacturer, p.Quantity, p.Price, p.Value())
	}
	tw.Flush()
}

func split(args []string, def string) (string, []string) {
	if len(args) == 0 {
		return def, nil
	}
	return args[0], args[1:]
}

func needID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing ID argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", args[0])
	}
	return id, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "❌ %s (HTTP %d)\n", apiErr.Message, apiErr.Status)
	} else {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	}
	os.Exit(1)
}
