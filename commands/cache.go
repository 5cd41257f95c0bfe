package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
)

// errNoSharedCache is returned when the page cache lives in the server's own memory.
var errNoSharedCache = errors.New("redis is not configured or unreachable: the page cache lives inside the running server, restart it or wait for the cache TTL")

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the page cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached index page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := utils.InitLogger(cfg); err != nil {
			return err
		}
		return clearIndexCache(cmd.OutOrStdout())
	},
}

// clearIndexCache removes cached index pages from Redis. Without Redis another
// process cannot reach the server's cache, so it refuses instead of reporting success.
func clearIndexCache(w io.Writer) error {
	if utils.GetRedis() == nil {
		return errNoSharedCache
	}
	n := utils.InvalidateByPrefix(middleware.IndexCachePrefix)
	fmt.Fprintf(w, "removed %d cached pages\n", n)
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
