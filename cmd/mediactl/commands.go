package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/timmy/mediagate/pkg/mediaclient"
)

// batchSize is the server's per-request limit for batch deletes.
const batchSize = 1000

type cli struct {
	v *viper.Viper
}

func (c *cli) client() *mediaclient.Client {
	return mediaclient.New(mediaclient.Config{
		BaseURL:    c.v.GetString("url"),
		Token:      c.v.GetString("token"),
		Timeout:    c.v.GetDuration("timeout"),
		RetryCount: c.v.GetInt("retries"),
	})
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MEDIAGATE")
	v.AutomaticEnv()
	c := &cli{v: v}

	rootCmd := &cobra.Command{
		Use:           "mediactl",
		Short:         "Manage media objects through a mediagate server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("url", "http://localhost:8080", "mediagate base URL (env MEDIAGATE_URL)")
	flags.String("token", "", "bearer token (env MEDIAGATE_TOKEN)")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.Int("retries", 2, "retries on transport errors and 5xx answers")
	for _, name := range []string{"url", "token", "timeout", "retries"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(newUploadCommand(c))
	rootCmd.AddCommand(newUploadDirCommand(c))
	rootCmd.AddCommand(newSignCommand(c))
	rootCmd.AddCommand(newListCommand(c))
	rootCmd.AddCommand(newDeleteCommand(c))

	return rootCmd
}

func newUploadCommand(c *cli) *cobra.Command {
	var mediaType, name string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file through a presigned URL and print its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ext := strings.TrimPrefix(filepath.Ext(path), ".")
			if ext == "" {
				return fmt.Errorf("%s has no extension", path)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			grant, err := c.client().UploadFile(cmd.Context(), ext, mediaType, name, f, mime.TypeByExtension("."+ext))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), grant.Key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mediaType, "type", "t", "uploads", "media type: avatars, videos, thumbnails or uploads")
	cmd.Flags().StringVarP(&name, "name", "n", "", "custom filename without extension")
	return cmd
}

func newUploadDirCommand(c *cli) *cobra.Command {
	opts := mediaclient.BulkOptions{}

	cmd := &cobra.Command{
		Use:   "upload-dir <dir>",
		Short: "Upload every file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.client().UploadDir(cmd.Context(), args[0], opts)
			if err != nil && stats == nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range stats.Results {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", r.Path, r.Key)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "uploaded=%d skipped=%d failed=%d duration=%s\n",
				stats.UploadedFiles, stats.SkippedFiles, stats.FailedFiles, stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond))
			if err != nil {
				return err
			}
			if stats.FailedFiles > 0 {
				return fmt.Errorf("%d files could not be uploaded", stats.FailedFiles)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.MediaType, "type", "t", "uploads", "media type: avatars, videos, thumbnails or uploads")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 4, "concurrent uploads")
	cmd.Flags().BoolVar(&opts.KeepNames, "keep-names", false, "use file names instead of generated ids")
	return cmd
}

func newSignCommand(c *cli) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "sign <key>...",
		Short: "Print presigned download URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := c.client().GetSignedURLs(cmd.Context(), args, path)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, key := range args {
				if u, ok := urls[key]; ok {
					fmt.Fprintf(w, "%s\t%s\n", key, u)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "folder joined in front of every key")
	return cmd
}

func newListCommand(c *cli) *cobra.Command {
	var opts mediaclient.ListOptions
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printPage := func(page *mediaclient.MediaListing) error {
				for _, item := range page.Items {
					fmt.Fprintf(w, "%s\t%d\t%s\n", item.Key, item.Size, item.LastModified)
				}
				return nil
			}

			client := c.client()
			if all {
				if err := client.ListAll(cmd.Context(), opts, printPage); err != nil {
					return err
				}
				return w.Flush()
			}

			page, err := client.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_ = printPage(page)
			if err := w.Flush(); err != nil {
				return err
			}
			if page.NextCursor != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "more results: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "only keys starting with prefix")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continue from a previous page")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 0, "page size (server default 100, max 1000)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "follow cursors until the listing is exhausted")
	return cmd
}

func newDeleteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete one or more objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := c.client()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				res, err := client.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted %s\n", res.Key)
				return nil
			}

			failed := 0
			for start := 0; start < len(args); start += batchSize {
				end := min(start+batchSize, len(args))
				res, err := client.DeleteBatch(cmd.Context(), args[start:end])
				if err != nil {
					return err
				}
				for _, key := range res.Deleted {
					fmt.Fprintf(out, "deleted %s\n", key)
				}
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", e.Key, e.Message)
				}
				failed += len(res.Errors)
			}
			if failed > 0 {
				return fmt.Errorf("%d keys could not be deleted", failed)
			}
			return nil
		},
	}
}
