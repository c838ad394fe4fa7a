package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"animehub/internal/chat"
	"animehub/internal/library"
	"animehub/internal/notify"
	"animehub/pkg/models"
)

func newRemoteCommand(ctx *commandContext) *cobra.Command {
	var apiFlag, tokenFlag string

	client := func() (*apiClient, error) {
		base := strings.TrimRight(strings.TrimSpace(apiFlag), "/")
		if base == "" {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return nil, err
			}
			base = localURL(cfg.Server.HTTPAddr)
		}
		path := strings.TrimSpace(tokenFlag)
		if path == "" {
			path = defaultTokenPath()
		}
		return &apiClient{baseURL: base, tokenPath: path, http: newHTTPClient()}, nil
	}

	remoteCmd := &cobra.Command{
		Use:   "remote",
		Short: "Use a running api-server as a signed-in user",
	}
	remoteCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "API base URL (default: server.http_addr on localhost)")
	remoteCmd.PersistentFlags().StringVar(&tokenFlag, "token-file", "", "Where the login token is kept (default ~/.animehub/token.json)")

	remoteCmd.AddCommand(
		newRemoteRegisterCommand(client),
		newRemoteLoginCommand(client),
		newRemoteLogoutCommand(client),
		newRemoteListCommand(client),
		newRemoteAddCommand(client),
		newRemoteRemoveCommand(client),
		newRemoteSeriesCommand(client),
		newRemoteWatchCommand(client),
		newRemoteHistoryCommand(client),
		newRemoteReviewCommand(client),
		newRemoteProfileCommand(client),
		newRemoteEventsCommand(client),
		newRemoteChatCommand(client),
		newRemoteNotifyCommand(ctx, client),
	)
	return remoteCmd
}

type clientFunc func() (*apiClient, error)

func newRemoteRegisterCommand(client clientFunc) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and keep its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			c, err := client()
			if err != nil {
				return err
			}
			var resp authResponse
			payload := map[string]string{"username": username, "email": email, "password": password}
			if err := c.do(cmd.Context(), http.MethodPost, "/auth/register", false, payload, &resp); err != nil {
				return err
			}
			if err := saveToken(c.tokenPath, tokenData{Token: resp.Token, Username: resp.User.Username, UserID: resp.User.ID}); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered and logged in as %s\n", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address (optional)")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newRemoteLoginCommand(client clientFunc) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if login == "" || password == "" {
				return errors.New("--login and --password are required")
			}
			c, err := client()
			if err != nil {
				return err
			}
			var resp authResponse
			payload := map[string]string{"login": login, "password": password}
			if err := c.do(cmd.Context(), http.MethodPost, "/auth/login", false, payload, &resp); err != nil {
				return err
			}
			if err := saveToken(c.tokenPath, tokenData{Token: resp.Token, Username: resp.User.Username, UserID: resp.User.ID}); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", resp.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "Username or email")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newRemoteLogoutCommand(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token and forget it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			// the token may already be expired; forgetting it locally is what matters
			_ = c.do(cmd.Context(), http.MethodPost, "/auth/logout", true, nil, nil)
			if err := clearToken(c.tokenPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

type entryPage struct {
	Total int                `json:"total"`
	Items []models.ListEntry `json:"items"`
}

func newRemoteListCommand(client clientFunc) *cobra.Command {
	var (
		status        string
		limit, offset int
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your watch list",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))

			var page entryPage
			if err := c.do(cmd.Context(), http.MethodGet, "/library?"+q.Encode(), true, nil, &page); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, page)
			}
			rows := make([][]string, 0, len(page.Items))
			for _, e := range page.Items {
				rows = append(rows, []string{
					e.AnimeID,
					label(string(e.Status)),
					strconv.Itoa(e.EpisodesWatched),
					count(e.Score),
					e.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Anime", "Status", "Watched", "Score", "Updated"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
			fmt.Fprintf(out, "showing %d of %d\n", len(page.Items), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the page as JSON")
	return cmd
}

func newRemoteAddCommand(client clientFunc) *cobra.Command {
	var (
		status          string
		episodes, score int
	)
	cmd := &cobra.Command{
		Use:   "add <anime_id>",
		Short: "Add or update an anime on your watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			payload := map[string]any{
				"anime_id":         args[0],
				"status":           status,
				"episodes_watched": episodes,
				"score":            score,
			}
			var saved models.ListEntry
			if err := c.do(cmd.Context(), http.MethodPost, "/library", true, payload, &saved); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d episodes\n", saved.AnimeID, label(string(saved.Status)), saved.EpisodesWatched)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(models.StatusPlanToWatch), "watching, completed, plan_to_watch, on_hold or dropped")
	cmd.Flags().IntVar(&episodes, "episodes", 0, "Episodes watched")
	cmd.Flags().IntVar(&score, "score", 0, "Your score, 1-10 (0 = none)")
	return cmd
}

func newRemoteRemoveCommand(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <anime_id>",
		Short: "Remove an anime from your watch list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			if err := c.do(cmd.Context(), http.MethodDelete, "/library/"+url.PathEscape(args[0]), true, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newRemoteSeriesCommand(client clientFunc) *cobra.Command {
	var (
		status, sortBy string
		asJSON         bool
	)
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show your watch list grouped into series",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			if sortBy != "" {
				q.Set("sort", sortBy)
			}
			var page struct {
				Total int                  `json:"total"`
				Items []library.SeriesView `json:"items"`
			}
			if err := c.do(cmd.Context(), http.MethodGet, "/library/series?"+q.Encode(), true, nil, &page); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, page)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderViews(page.Items))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only entries with this status")
	cmd.Flags().StringVar(&sortBy, "sort", "", "rating, year, title or episodes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the series as JSON")
	return cmd
}

func renderViews(views []library.SeriesView) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		watched := 0
		for _, e := range v.Entries {
			watched += e.EpisodesWatched
		}
		rows = append(rows, []string{
			truncate(v.DisplayTitle, 50),
			strconv.Itoa(len(v.Entries)) + "/" + strconv.Itoa(v.SeasonCount),
			strconv.Itoa(watched) + "/" + count(v.TotalEpisodes),
			score(v.Rating),
		})
	}
	return renderTable([]string{"Series", "Listed", "Watched", "Rating"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight})
}

func newRemoteWatchCommand(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <anime_id> <episode>",
		Short: "Record that you watched up to an episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			episode, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("episode: %w", err)
			}
			c, err := client()
			if err != nil {
				return err
			}
			var resp struct {
				Entry models.ListEntry `json:"entry"`
			}
			payload := map[string]int{"episode": episode}
			if err := c.do(cmd.Context(), http.MethodPut, "/progress/"+url.PathEscape(args[0]), true, payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: episode %d (%s)\n", args[0], resp.Entry.EpisodesWatched, label(string(resp.Entry.Status)))
			return nil
		},
	}
}

func newRemoteHistoryCommand(client clientFunc) *cobra.Command {
	var (
		animeID string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your watch history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			q := url.Values{}
			if animeID != "" {
				q.Set("anime_id", animeID)
			}
			q.Set("limit", strconv.Itoa(limit))
			var page struct {
				Total int                 `json:"total"`
				Items []models.WatchEvent `json:"items"`
			}
			if err := c.do(cmd.Context(), http.MethodGet, "/progress/history?"+q.Encode(), true, nil, &page); err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, page)
			}
			rows := make([][]string, 0, len(page.Items))
			for _, ev := range page.Items {
				rows = append(rows, []string{ev.At.Local().Format(time.DateTime), ev.AnimeID, strconv.Itoa(ev.Episode)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"When", "Anime", "Episode"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&animeID, "anime", "", "Only this anime")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write history as JSON")
	return cmd
}

func newRemoteReviewCommand(client clientFunc) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "review <anime_id> <rating>",
		Short: "Rate an anime from 1 to 10, replacing any earlier review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating: %w", err)
			}
			c, err := client()
			if err != nil {
				return err
			}
			payload := map[string]any{"anime_id": args[0], "rating": rating, "text": text}
			if err := c.do(cmd.Context(), http.MethodPost, "/reviews", true, payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reviewed %s: %d/10\n", args[0], rating)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Review text")
	return cmd
}

func newRemoteProfileCommand(client clientFunc) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "profile <username>",
		Short: "Show a public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			path := "/profiles/" + url.PathEscape(args[0])
			if sortBy != "" {
				path += "?sort=" + url.QueryEscape(sortBy)
			}
			var page json.RawMessage
			if err := c.do(cmd.Context(), http.MethodGet, path, false, nil, &page); err != nil {
				return err
			}
			return writeJSON(cmd, page)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "", "Series order: rating, year, title or episodes")
	return cmd
}

func newRemoteEventsCommand(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream sync events over WebSocket until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			endpoint, err := websocketURL(c.baseURL, "/ws", nil)
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), endpoint, nil)
			if err != nil {
				return err
			}
			defer conn.Close()
			stop := context.AfterFunc(cmd.Context(), func() { _ = conn.Close() })
			defer stop()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(msg))
			}
		},
	}
}

func newRemoteChatCommand(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <anime_id>",
		Short: "Join an anime's discussion room; stdin lines are sent as messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			q := url.Values{}
			if td, err := readToken(c.tokenPath); err == nil {
				q.Set("token", td.Token)
			}
			endpoint, err := websocketURL(c.baseURL, "/anime/"+url.PathEscape(args[0])+"/discussion/ws", q)
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), endpoint, nil)
			if err != nil {
				return err
			}
			defer conn.Close()
			stop := context.AfterFunc(cmd.Context(), func() { _ = conn.Close() })
			defer stop()

			out := cmd.OutOrStdout()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					var m chat.Message
					if err := conn.ReadJSON(&m); err != nil {
						return
					}
					switch m.Type {
					case chat.TypeJoin:
						fmt.Fprintf(out, "* %s joined\n", m.User)
					case chat.TypeLeave:
						fmt.Fprintf(out, "* %s left\n", m.User)
					default:
						fmt.Fprintf(out, "[%s] %s: %s\n", m.At.Local().Format(time.TimeOnly), m.User, m.Text)
					}
				}
			}()

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				text := strings.TrimSpace(sc.Text())
				if text == "" {
					continue
				}
				if err := conn.WriteJSON(map[string]string{"text": text}); err != nil {
					return err
				}
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return sc.Err()
		},
	}
}

func newRemoteNotifyCommand(ctx *commandContext, client clientFunc) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Register for new-episode alerts over UDP and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			td, err := readToken(c.tokenPath)
			if err != nil {
				return err
			}
			if td.UserID == "" {
				return errors.New("token file has no user id; log in again")
			}
			target := addr
			if target == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				target = strings.TrimPrefix(localURL(cfg.Server.NotifyAddr), "http://")
			}

			conn, err := net.Dial("udp", target)
			if err != nil {
				return err
			}
			defer conn.Close()
			stop := context.AfterFunc(cmd.Context(), func() { _ = conn.Close() })
			defer stop()

			register := func(kind string) error {
				b, _ := json.Marshal(notify.RegisterMessage{Type: kind, UserID: td.UserID})
				_, err := conn.Write(b)
				return err
			}
			if err := register(notify.RegisterMessageType); err != nil {
				return err
			}
			defer func() { _ = register(notify.UnregisterMessageType) }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "listening for new episodes as %s via %s\n", td.Username, target)
			buf := make([]byte, 2048)
			for {
				n, err := conn.Read(buf)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				var msg notify.NewEpisodeMessage
				if json.Unmarshal(buf[:n], &msg) != nil || msg.Type != notify.NewEpisodeMessageType {
					continue
				}
				fmt.Fprintf(out, "%s: %d new episode(s), now %d\n", msg.Title, msg.Episodes-msg.Previous, msg.Episodes)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Notifier UDP address (default: server.notify_addr on localhost)")
	return cmd
}
