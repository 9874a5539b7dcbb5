package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/i474232898/weather-tracker-client/internal/config"
)

const banner = `
                     _   _                 _                  _
__      _____  __ _| |_| |__   ___ _ __  | |_ _ __ __ _  ___| | _____ _ __
\ \ /\ / / _ \/ _' | __| '_ \ / _ \ '__| | __| '__/ _' |/ __| |/ / _ \ '__|
 \ V  V /  __/ (_| | |_| | | |  __/ |    | |_| | | (_| | (__|   <  __/ |
  \_/\_/ \___|\__,_|\__|_| |_|\___|_|     \__|_|  \__,_|\___|_|\_\___|_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("failed to initialise client: %v", err)
	}
	defer a.Close()

	switch cmd {
	case "login":
		err = cmdLogin(a, args, false)
	case "register":
		err = cmdLogin(a, args, true)
	case "me":
		err = cmdMe(a)
	case "logout":
		err = cmdLogout(a)
	case "fetch":
		err = cmdFetch(a, args)
	case "search":
		err = cmdSearch(a, args)
	case "list":
		err = cmdList(a, args)
	case "dates":
		err = cmdDates(a, args)
	case "ask":
		err = cmdAsk(a, args)
	case "chat":
		err = cmdChat(a)
	case "serve":
		err = cmdServe(a)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Erreur : %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: weather-tracker <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login [email]                     Log in (password from WEATHER_SECRET or prompt)")
	fmt.Println("  register [email]                  Create an account and log into it")
	fmt.Println("  me                                Show the authenticated account")
	fmt.Println("  logout                            Drop the server session")
	fmt.Println("  fetch <city>                      Fetch and store forecasts for a preset or searched city")
	fmt.Println("  fetch --lat <lat> --lon <lon>     Fetch forecasts for a coordinate pair")
	fmt.Println("        [--days <1-16>]             Forecast horizon")
	fmt.Println("  search <text>                     Resolve a place name to coordinates")
	fmt.Println("  list [--from <day> --to <day>]    Stored forecasts grouped by location")
	fmt.Println("  dates <location> [day]            Days available for a location, or one day's hours")
	fmt.Println("  ask <question>                    Ask the weather agent one question")
	fmt.Println("  chat                              Talk to the weather agent (Ctrl+D to exit)")
	fmt.Println("  serve                             Run the local dashboard API")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  API_URL                  Backend base URL (default: http://localhost:8000)")
	fmt.Println("  API_KEY                  Sent as X-API-Key on every request")
	fmt.Println("  WEATHER_IDENTITY         Account email used by non-interactive commands")
	fmt.Println("  WEATHER_SECRET           Account password")
	fmt.Println("  BACKEND_MAX_RETRIES      Retries for failed backend calls (default: 0)")
	fmt.Println("  GEOCODER_API_KEY         Use Google geocoding instead of Nominatim")
	fmt.Println("  CITIES_FILE              YAML file of preset cities")
	fmt.Println("  FETCH_INTERVAL           serve: refresh preset cities this often (default: off)")
	fmt.Println("  PORT                     serve: listen port (default: 8080)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  export WEATHER_IDENTITY=me@example.fr WEATHER_SECRET=...")
	fmt.Println("  weather-tracker fetch Lyon --days 3")
	fmt.Println("  weather-tracker dates Lyon 2024-06-01")
	fmt.Println("  weather-tracker ask \"Quel temps à Paris ?\"")
	fmt.Println()
}
