package cli

import (
	"fmt"
	"strconv"

	"github.com/garyjia/design-bureau/internal/infrastructure/ratesheet"
	"github.com/spf13/cobra"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the tariff table",
}

var ratesImportCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Replace the tariff table with the rows of a workbook",
	Long: `Replace the tariff table with the rows of the first sheet of a workbook.

The header row names the columns: role, classification, stage, area_from,
area_to, city, price_per_m2, fixed_price. The table is swapped in a single
transaction; on any parse error the existing rates are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		db, repos, err := e.openStore()
		if err != nil {
			return err
		}
		defer db.Conn.Close()

		n, err := ratesheet.NewImporter(repos.Rates, e.logger).ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rates\n", n)
		return nil
	},
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the tariff table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		db, repos, err := e.openStore()
		if err != nil {
			return err
		}
		defer db.Conn.Close()

		rates, err := repos.Rates.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rates) == 0 {
			fmt.Fprintln(out, "No rates configured. Use 'bureauctl rates import' to load a workbook.")
			return nil
		}
		for _, r := range rates {
			fmt.Fprintf(out, "%-22s %-10s %-12s %s-%s %-12s per_m2=%-8.2f fixed=%.2f\n",
				r.Role, r.Classification, r.Stage, bound(r.AreaFrom), bound(r.AreaTo), r.City, r.PricePerM2, r.FixedPrice)
		}
		return nil
	},
}

func init() {
	ratesCmd.AddCommand(ratesImportCmd)
	ratesCmd.AddCommand(ratesListCmd)
	RootCmd.AddCommand(ratesCmd)
}

func bound(v *float64) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
