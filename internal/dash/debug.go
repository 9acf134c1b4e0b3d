package dash

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/skylark-data/flightdeck/internal/monitoring"
	"github.com/skylark-data/flightdeck/internal/version"
)

// AttachDebugRoutes mounts the /debug pages: live SQL access to the log
// index and an on-demand database backup.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.cfg.DBPath, s.db.DB, &tailsql.DBOptions{
		Label: "Flight Log Index",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the log index now",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
			if _, err := s.db.Exec("VACUUM INTO ?", backupPath); err != nil {
				http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
			w.Header().Set("Content-Type", "application/octet-stream")
			http.ServeFile(w, r, backupPath)
			monitoring.Logf("debug: served backup %s", backupPath)
		}))

	debug.Handle("cache", "Show parsed log cache occupancy",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "cached logs: %d / %d\n", s.cache.len(), s.cfg.CacheSize)
		}))

	debug.Handle("version", "Show build identification",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, version.String())
		}))

	return nil
}
