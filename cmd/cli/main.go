package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "tubequeue",
		Short: "TubeQueue CLI - YouTube download queue manager",
		Long:  `A command-line interface for managing a queue of YouTube downloads driven by yt-dlp.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(pauseAllCmd)
	rootCmd.AddCommand(resumeAllCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func postJSON(path string, payload interface{}) []byte {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	}
	resp, err := http.Post(serverURL+path, "application/json", body)
	if err != nil {
		fail("Error: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fail("Error: %s", string(respBody))
	}
	return respBody
}

func getJSON(path string, out interface{}) {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		fail("Error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fail("Error: %s", string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		fail("Error: failed to parse response: %v", err)
	}
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a video or playlist URL to the queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		payload := map[string]string{"url": args[0]}
		if cb, _ := cmd.Flags().GetString("callback-url"); cb != "" {
			payload["callbackUrl"] = cb
		}
		if cid, _ := cmd.Flags().GetString("correlation-id"); cid != "" {
			payload["correlationId"] = cid
		}

		body := postJSON("/api/v1/tasks", payload)
		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Println("Task added")
		fmt.Printf("ID:     %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/tasks"
		if status != "" {
			path += "?status=" + status
		}

		var result struct {
			Tasks []struct {
				ID       string  `json:"id"`
				Title    string  `json:"title"`
				Status   string  `json:"status"`
				Progress float64 `json:"progress"`
			} `json:"tasks"`
			Paused bool `json:"paused"`
		}
		getJSON(path, &result)

		if result.Paused {
			fmt.Println("Queue is paused")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROGRESS")
		for _, t := range result.Tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\n",
				truncate(t.ID, 8),
				truncate(t.Title, 45),
				t.Status,
				t.Progress*100)
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var stats map[string]interface{}
		getJSON("/api/v1/tasks/stats", &stats)

		fmt.Println("Task Statistics:")
		for _, key := range []string{"total", "pending", "fetching_info", "waiting_selection",
			"scheduled", "live", "post_live", "downloading", "paused",
			"completed", "failed", "cancelled"} {
			fmt.Printf("  %-18s %v\n", key+":", stats[key])
		}
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get task details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		var task map[string]interface{}
		getJSON("/api/v1/tasks/"+args[0], &task)

		fmt.Println("Task Details:")
		fmt.Printf("  ID:      %s\n", task["id"])
		fmt.Printf("  URL:     %s\n", task["url"])
		fmt.Printf("  Title:   %s\n", task["title"])
		fmt.Printf("  Status:  %s\n", task["status"])
		if p, ok := task["progress"].(float64); ok {
			fmt.Printf("  Progress: %.0f%%\n", p*100)
		}
		fmt.Printf("  Created: %s\n", task["created_at"])
		if task["output_path"] != nil && task["output_path"] != "" {
			fmt.Printf("  File:    %s\n", task["output_path"])
		}
		if task["error_detail"] != nil && task["error_detail"] != "" {
			fmt.Printf("  Error:   %s\n", task["error_detail"])
		}
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/"+args[0]+"/pause", nil)
		fmt.Println("Task paused")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/"+args[0]+"/resume", nil)
		fmt.Println("Task resumed")
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [id]",
	Short: "Retry a failed, cancelled or scheduled task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/"+args[0]+"/retry", nil)
		fmt.Println("Task queued for retry")
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/"+args[0]+"/cancel", nil)
		fmt.Println("Task cancelled")
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a task from the queue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		req, _ := http.NewRequest(http.MethodDelete, serverURL+"/api/v1/tasks/"+args[0], nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fail("Error: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fail("Error: %s", string(body))
		}
		fmt.Println("Task removed")
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [id...]",
	Short: "Confirm subtitle and audio selection for waiting tasks",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		subs, _ := cmd.Flags().GetString("subs")
		audio, _ := cmd.Flags().GetString("audio")

		payload := map[string]interface{}{"taskIds": args}
		if subs != "" {
			payload["subtitleLangs"] = strings.Split(subs, ",")
		}
		if audio != "" {
			payload["audioLang"] = audio
		}

		postJSON("/api/v1/tasks/selection", payload)
		fmt.Println("Selection confirmed")
	},
}

var pauseAllCmd = &cobra.Command{
	Use:   "pause-all",
	Short: "Pause the whole queue",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/pause-all", nil)
		fmt.Println("All tasks paused")
	},
}

var resumeAllCmd = &cobra.Command{
	Use:   "resume-all",
	Short: "Resume the whole queue, including failed tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postJSON("/api/v1/tasks/resume-all", nil)
		fmt.Println("All tasks resumed")
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear tasks from the queue",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		completedOnly, _ := cmd.Flags().GetBool("completed")
		if completedOnly {
			postJSON("/api/v1/tasks/clear-completed", nil)
			fmt.Println("Completed tasks cleared")
			return
		}
		postJSON("/api/v1/tasks/clear", nil)
		fmt.Println("All tasks cleared")
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View server logs (queue, task, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")

		var result struct {
			Entries []struct {
				Timestamp string `json:"ts"`
				Level     string `json:"level"`
				Message   string `json:"msg"`
			} `json:"entries"`
		}
		getJSON(fmt.Sprintf("/api/v1/logs/%s?limit=%d", args[0], limit), &result)

		for _, e := range result.Entries {
			fmt.Printf("%s [%s] %s\n", e.Timestamp, strings.ToUpper(e.Level), e.Message)
		}
	},
}

func init() {
	addCmd.Flags().String("callback-url", "", "URL to POST completion details to")
	addCmd.Flags().String("correlation-id", "", "Opaque ID echoed back in the completion callback")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	selectCmd.Flags().String("subs", "", "Comma-separated subtitle language codes")
	selectCmd.Flags().String("audio", "", "Preferred audio language code")
	clearCmd.Flags().Bool("completed", false, "Clear completed tasks only")
	logsCmd.Flags().IntP("limit", "n", 100, "Number of entries to show")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
