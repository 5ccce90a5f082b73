package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dropbin/service/internal/client"
)

// version is set from the git tag at build time.
var version = ""

const defaultServer = "http://localhost:8080"

type uploadOptions struct {
	server      string
	open        bool
	retries     int
	interactive bool
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "dropbin",
		Short:         "Upload files to a dropbin server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(newUploadCmd(nil, nil), newVersionCmd())
	return root
}

// newUploadCmd builds the upload command. uploader and opener are replaced in tests.
func newUploadCmd(uploader client.Uploader, opener client.Opener) *cobra.Command {
	opts := uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a single file and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := uploader
			if u == nil {
				u = client.New(opts.server)
			}
			return runUpload(cmd.Context(), cmd, client.NewForm(u, opener), args[0], opts)
		},
	}

	server := os.Getenv("DROPBIN_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.Flags().StringVar(&opts.server, "server", server, "server base URL (env DROPBIN_SERVER)")
	cmd.Flags().BoolVar(&opts.open, "open", false, "open the uploaded file in the browser")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "retry a failed upload this many times")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "ask before retrying a failed upload")
	return cmd
}

func runUpload(ctx context.Context, cmd *cobra.Command, form *client.Form, path string, opts uploadOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	form.Select(filepath.Base(path), content)
	fmt.Fprintf(errOut, "uploading %s (%s)\n", form.FileName(), humanize.IBytes(uint64(len(content))))

	err = form.Upload(ctx)
	prompt := bufio.NewReader(cmd.InOrStdin())
	for attempt := 0; err != nil && form.State() == client.StateFailed; attempt++ {
		fmt.Fprintf(errOut, "error: %v\n", form.Err())
		if !shouldRetry(attempt, opts, prompt, errOut) {
			return err
		}
		fmt.Fprintln(errOut, "retrying...")
		err = form.Retry(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, form.URL())
	if opts.open {
		if err := form.Download(); err != nil {
			return fmt.Errorf("open %s: %w", form.URL(), err)
		}
	}
	return nil
}

func shouldRetry(attempt int, opts uploadOptions, prompt *bufio.Reader, errOut io.Writer) bool {
	if attempt < opts.retries {
		return true
	}
	if !opts.interactive {
		return false
	}
	fmt.Fprint(errOut, "retry? [y/N] ")
	answer, err := prompt.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			if version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "version not set")
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
