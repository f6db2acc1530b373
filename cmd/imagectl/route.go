package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fpang/massive-shoot/internal/edge"
)

var (
	routeAccept        string
	routeThumbnail     bool
	routeHostingPrefix string
	routeSavePrefix    string
)

var routeCmd = &cobra.Command{
	Use:   "route PATH",
	Short: "Print the storage path the CDN serves for a public image path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := edge.Request{
			Method:  "GET",
			URI:     args[0],
			Headers: map[string][]edge.Header{},
		}
		if routeThumbnail {
			req.Querystring = "thumbnail=" + strconv.FormatBool(routeThumbnail)
		}
		if routeAccept != "" {
			req.Headers["accept"] = []edge.Header{{Key: "Accept", Value: routeAccept}}
		}

		out, err := edge.NewRouter(nil, routeHostingPrefix, routeSavePrefix).Rewrite(req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.URI)
		return nil
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeAccept, "accept", "", "Accept header sent by the viewer")
	routeCmd.Flags().BoolVar(&routeThumbnail, "thumbnail", false, "Request the 400px thumbnail")
	routeCmd.Flags().StringVar(&routeHostingPrefix, "hosting-prefix", "images", "Public path prefix")
	routeCmd.Flags().StringVar(&routeSavePrefix, "save-prefix", ".images", "Storage key prefix")
}
