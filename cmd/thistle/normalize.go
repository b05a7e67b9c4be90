package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/pkg/csvio"
	"github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/screening"
)

func newNormalizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <customer|negative|positive> <in.csv> <out.csv>",
		Short: "Normalize one list and write it as CSV",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := models.ListKind(args[0])
			switch kind {
			case models.ListCustomer, models.ListNegative, models.ListPositive:
			default:
				return errors.NewScreeningErrorf(errors.KindUnreadableSource, "unknown list %q", args[0])
			}

			svc := screening.NewService(a.log, optionsFromConfig(a.cfg), nil, nil)
			list, err := svc.LoadList(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return csvio.WriteFile(args[2], func(w io.Writer) error {
				return csvio.WriteRecords(w, list.Store.Records())
			})
		},
	}
}
