// Package cli dispatches keybox command verbs against the Keybox service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"

	"github.com/dtroode/keybox/internal/container"
	"github.com/dtroode/keybox/internal/entry"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/service"
)

// ErrUsage is returned for unknown verbs and wrong argument counts.
var ErrUsage = errors.New("usage: keybox list | find <query> | grep <pattern> | add-host <title> <hostname> <username> <password> | " +
	"add-url <title> <url> <username> | delete <id> | passwd | backups | history | restore archive <container-id> | restore backup <key>")

// Options carries what the command needs besides its arguments.
type Options struct {
	Path          string
	Passphrase    string
	NewPassphrase string
}

type CLI struct {
	svc  *service.Keybox
	out  io.Writer
	opts Options
}

func New(svc *service.Keybox, out io.Writer, opts Options) *CLI {
	return &CLI{
		svc:  svc,
		out:  out,
		opts: opts,
	}
}

type command struct {
	args int
	run  func(ctx context.Context, c *container.Container, args []string) error
}

func (c *CLI) commands() map[string]command {
	return map[string]command{
		"list":     {args: 0, run: c.list},
		"find":     {args: 1, run: c.find},
		"grep":     {args: 1, run: c.grep},
		"add-host": {args: 4, run: c.addHost},
		"add-url":  {args: 3, run: c.addURL},
		"delete":   {args: 1, run: c.delete},
		"passwd":   {args: 0, run: c.passwd},
		"backups":  {args: 0, run: c.backups},
		"history":  {args: 0, run: c.history},
	}
}

// Run executes the verb in args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	verb, rest := args[0], args[1:]

	if verb == "restore" {
		return c.restore(ctx, rest)
	}

	cmd, ok := c.commands()[verb]
	if !ok || len(rest) != cmd.args {
		return ErrUsage
	}

	box, err := c.svc.Open(c.opts.Passphrase, c.opts.Path)
	if err != nil {
		return err
	}
	return cmd.run(ctx, box, rest)
}

func (c *CLI) list(_ context.Context, box *container.Container, _ []string) error {
	c.print(box.Entries())
	return nil
}

func (c *CLI) find(_ context.Context, box *container.Container, args []string) error {
	found, err := box.Find(args[0])
	if err != nil {
		return err
	}
	c.print(found)
	return nil
}

func (c *CLI) grep(_ context.Context, box *container.Container, args []string) error {
	found, err := box.FindPattern(args[0])
	if err != nil {
		return err
	}
	c.print(found)
	return nil
}

func (c *CLI) addHost(ctx context.Context, box *container.Container, args []string) error {
	return c.add(ctx, box, entry.NewHost(args[0], args[1], args[2], args[3]))
}

func (c *CLI) addURL(ctx context.Context, box *container.Container, args []string) error {
	return c.add(ctx, box, entry.NewURL(args[0], args[1], args[2]))
}

func (c *CLI) add(ctx context.Context, box *container.Container, e entry.Entry) error {
	if err := box.Add(e); err != nil {
		return err
	}
	if err := c.svc.Save(ctx, box); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added %s\n", e.ID())
	return nil
}

func (c *CLI) delete(ctx context.Context, box *container.Container, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return model.NewValidationError("id", err.Error())
	}
	removed, err := box.DeleteByID(id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("entry %s: %w", id, model.ErrNotFound)
	}
	if err := c.svc.Save(ctx, box); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted %s\n", id)
	return nil
}

func (c *CLI) passwd(ctx context.Context, box *container.Container, _ []string) error {
	if err := c.svc.ChangePassphrase(ctx, box, c.opts.NewPassphrase); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "passphrase changed")
	return nil
}

func (c *CLI) backups(ctx context.Context, box *container.Container, _ []string) error {
	keys, err := c.svc.Backups(ctx, box.ID())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, count(len(keys), "backup"))
	for _, k := range keys {
		fmt.Fprintln(c.out, k)
	}
	return nil
}

func (c *CLI) history(ctx context.Context, box *container.Container, _ []string) error {
	list, err := c.svc.History(ctx, box.ID())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, count(len(list), "snapshot"))
	for _, s := range list {
		fmt.Fprintf(c.out, "%s  %s  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"), s.ID, s.Checksum)
	}
	return nil
}

// restore does not open the local container first since it may be the
// damaged copy.
func (c *CLI) restore(ctx context.Context, args []string) error {
	switch {
	case len(args) == 2 && args[0] == "backup":
		if err := c.svc.RestoreBackup(ctx, args[1], c.opts.Path); err != nil {
			return err
		}
	case len(args) == 2 && args[0] == "archive":
		id, err := uuid.Parse(args[1])
		if err != nil {
			return model.NewValidationError("container id", err.Error())
		}
		if err := c.svc.RestoreLatest(ctx, id, c.opts.Path); err != nil {
			return err
		}
	default:
		return ErrUsage
	}
	fmt.Fprintf(c.out, "restored %s\n", c.opts.Path)
	return nil
}

func (c *CLI) print(entries []entry.Entry) {
	fmt.Fprintln(c.out, count(len(entries), "entry"))
	for _, e := range entries {
		fmt.Fprintf(c.out, "\n%s %s\n%s", e.Kind(), e.ID(), entry.Describe(e))
	}
}

func count(n int, noun string) string {
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("%d %s", n, noun)
}
