package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const usage = `Usage: seriesctl [flags] <command>

Commands:
  health                 état du serveur
  version                version du serveur
  digest <window>        digest (today|tomorrow|this_week|next_week)
  wanted                 liste des séries attendues
  reconcile [--rebuild]  lance une passe de réconciliation
  last                   dernier rapport de réconciliation`

func main() {
	baseURL := flag.String("server", envOr("SERIES_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Timeout HTTP")
	asJSON := flag.Bool("json", false, "Réponse JSON brute (digest, wanted)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	api := *baseURL + "/api/v1"
	format := "text"
	if *asJSON {
		format = "json"
	}

	switch args[0] {
	case "health":
		run(client, http.MethodGet, api+"/health")
	case "version":
		run(client, http.MethodGet, api+"/version")
	case "digest":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: seriesctl digest <today|tomorrow|this_week|next_week>")
			os.Exit(2)
		}
		run(client, http.MethodGet, api+"/digest/"+url.PathEscape(args[1])+"?format="+format)
	case "wanted":
		run(client, http.MethodGet, api+"/wanted?format="+format)
	case "reconcile":
		target := api + "/reconcile"
		if len(args) > 1 && args[1] == "--rebuild" {
			target += "?rebuild=true"
		}
		run(client, http.MethodPost, target)
	case "last":
		run(client, http.MethodGet, api+"/reconcile/last")
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func run(client *http.Client, method, target string) {
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		_ = enc.Encode(pretty)
	} else {
		os.Stdout.Write(b)
		os.Stdout.Write([]byte("\n"))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
