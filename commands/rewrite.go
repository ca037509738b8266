package commands

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/chrisvdg/linkswap/checker"
	"github.com/chrisvdg/linkswap/dom"
	"github.com/chrisvdg/linkswap/pipeline"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rewriteOptions struct {
	in     string
	url    string
	base   string
	out    string
	direct bool
	watch  bool
}

func (c *CLI) newRewriteCmd() *cobra.Command {
	o := &rewriteOptions{}
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite the source article links of an html page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.rewrite(cmd, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.in, "in", "i", "", "Html file to rewrite, stdin when empty")
	flags.StringVarP(&o.url, "url", "u", "", "Fetch the page to rewrite from this url")
	flags.StringVarP(&o.base, "base", "b", "", "Url relative links resolve against, defaults to --url")
	flags.StringVarP(&o.out, "out", "o", "", "Output file, stdout when empty")
	flags.BoolVar(&o.direct, "direct", false, "Verify in process instead of asking the verification service")
	flags.BoolVarP(&o.watch, "watch", "w", false, "Rewrite again whenever the input file changes")

	return cmd
}

func (c *CLI) rewrite(cmd *cobra.Command, o *rewriteOptions) error {
	if o.in != "" && o.url != "" {
		return errors.New("--in and --url are mutually exclusive")
	}
	if o.watch && o.in == "" {
		return errors.New("--watch requires --in")
	}
	if o.watch && o.out != "" && filepath.Clean(o.out) == filepath.Clean(o.in) {
		return errors.New("--watch requires --out to differ from --in")
	}

	base := o.base
	if base == "" {
		base = o.url
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return errors.Wrap(err, "invalid base url")
	}

	var ch checker.Checker
	if o.direct {
		ch, _ = pipeline.NewVerifier(c.conf, nil)
	} else {
		ch = pipeline.NewProxy(c.conf, nil)
	}
	p, err := pipeline.NewProcessor(c.conf, ch)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	run := func() error {
		page, err := c.readPage(ctx, o, cmd.InOrStdin())
		if err != nil {
			return err
		}
		doc, err := dom.Parse(bytes.NewReader(page), baseURL)
		if err != nil {
			return err
		}

		n := pipeline.Rewrite(ctx, c.conf, doc, p)
		log.Infof("rewrote %d link(s)", n)

		return writePage(doc, o.out, cmd.OutOrStdout())
	}

	if err := run(); err != nil {
		return err
	}
	if !o.watch {
		return nil
	}

	return watchFile(ctx, o.in, run)
}

func (c *CLI) readPage(ctx context.Context, o *rewriteOptions, stdin io.Reader) ([]byte, error) {
	switch {
	case o.url != "":
		return c.fetchPage(ctx, o.url)
	case o.in != "":
		data, err := ioutil.ReadFile(o.in)
		return data, errors.Wrap(err, "failed to read input")
	default:
		data, err := ioutil.ReadAll(stdin)
		return data, errors.Wrap(err, "failed to read stdin")
	}
}

func (c *CLI) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.conf.Channel.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create page request")
	}
	req.Header.Set("User-Agent", c.conf.Check.UserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch page")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to fetch page: %s", resp.Status)
	}

	data, err := ioutil.ReadAll(resp.Body)
	return data, errors.Wrap(err, "failed to read page")
}

func writePage(doc *dom.Document, path string, stdout io.Writer) error {
	if path == "" {
		return doc.Render(stdout)
	}

	var b bytes.Buffer
	if err := doc.Render(&b); err != nil {
		return err
	}
	return errors.Wrap(ioutil.WriteFile(path, b.Bytes(), 0o644), "failed to write output")
}

// watchFile calls fn after every write to path until ctx is done
// The directory is watched so editors replacing the file are noticed too.
func watchFile(ctx context.Context, path string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", path)
	}
	log.Infof("watching %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := fn(); err != nil {
				log.Errorf("failed to rewrite %s: %s", path, err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Errorf("file watcher: %s", err)
		}
	}
}
