package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pribylovaa/go-admin-bff/pkg/adminclient"
	"github.com/spf13/cobra"
)

// record — запись ресурса без фиксированной схемы.
type record = map[string]any

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> [id]",
		Short: "List a resource or fetch one record",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			res := adminclient.NewResource[record](a.client, args[0])

			var out any
			if len(args) == 2 {
				out, err = res.Get(cmd.Context(), args[1])
			} else {
				out, err = res.List(cmd.Context(), nil)
			}
			if err := a.finish(err); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			err = adminclient.NewResource[record](a.client, args[0]).Delete(cmd.Context(), args[1])
			if err := a.finish(err); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}

// finish сохраняет сессию после вызова ресурса и переводит истёкшую сессию
// в понятную оператору ошибку.
func (a *app) finish(callErr error) error {
	if err := a.persist(); err != nil {
		return err
	}
	if errors.Is(callErr, adminclient.ErrSessionExpired) {
		return fmt.Errorf("session expired, run 'adminctl login': %w", callErr)
	}
	return callErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
