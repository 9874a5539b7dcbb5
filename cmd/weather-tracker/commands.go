package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/i474232898/weather-tracker-client/internal/agent"
	"github.com/i474232898/weather-tracker-client/internal/common"
	"github.com/i474232898/weather-tracker-client/internal/config"
	"github.com/i474232898/weather-tracker-client/internal/weather"
)

// commandTimeout bounds one-shot commands, geocoding included.
const commandTimeout = 2 * time.Minute

// commandContext bounds one command, or one chat exchange.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func cmdLogin(a *app, args []string, register bool) error {
	ctx, cancel := commandContext()
	defer cancel()

	email := a.cfg.Identity
	if len(args) > 0 {
		email = args[0]
	}
	var err error
	if email == "" {
		if email, err = prompt("Email: "); err != nil {
			return err
		}
	}
	password := a.cfg.Secret
	if password == "" {
		if password, err = prompt("Mot de passe: "); err != nil {
			return err
		}
	}

	login := a.sessions.Login
	if register {
		login = a.sessions.Register
	}
	res := login(ctx, email, password)
	if !res.OK {
		return fmt.Errorf("%s", res.Reason)
	}

	color.Green("Connecté en tant que %s\n", a.sessions.Current().Identity)
	return nil
}

func cmdMe(a *app) error {
	ctx, cancel := commandContext()
	defer cancel()

	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	u, _ := a.sessions.User()

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Compte")
	cyan.Println("  ------")
	fmt.Printf("  ID:         %d\n", u.ID)
	fmt.Printf("  Email:      %s\n", u.Email)
	fmt.Printf("  Actif:      %t\n", u.IsActive)
	if u.CreatedAt != "" {
		fmt.Printf("  Créé le:    %s\n", u.CreatedAt)
	}
	fmt.Println()
	return nil
}

func cmdLogout(a *app) error {
	ctx, cancel := commandContext()
	defer cancel()

	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	a.sessions.Logout(ctx)
	color.Green("Déconnecté\n")
	return nil
}

func cmdFetch(a *app, args []string) error {
	var query, lat, lon, days string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--lat":
			if i+1 < len(args) {
				lat = args[i+1]
				i++
			}
		case "--lon":
			if i+1 < len(args) {
				lon = args[i+1]
				i++
			}
		case "--days", "-d":
			if i+1 < len(args) {
				days = args[i+1]
				i++
			}
		default:
			query = strings.TrimSpace(query + " " + args[i])
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	name, latitude, longitude, err := resolveTarget(ctx, a, query, lat, lon)
	if err != nil {
		return err
	}
	n := 0
	if days != "" {
		if n, err = strconv.Atoi(days); err != nil {
			return fmt.Errorf("--days must be a number")
		}
	}

	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	res, err := a.weather.FetchForecastDays(ctx, latitude, longitude, n)
	if err != nil {
		return fmt.Errorf("%s", common.Reason(err))
	}

	color.Green("%s\n", weather.Describe(name, res))
	return nil
}

// resolveTarget turns fetch arguments into a name and coordinates: explicit
// coordinates first, then a preset city, then a geocoder search.
func resolveTarget(ctx context.Context, a *app, query, lat, lon string) (string, float64, float64, error) {
	if lat != "" || lon != "" {
		latitude, err1 := strconv.ParseFloat(lat, 64)
		longitude, err2 := strconv.ParseFloat(lon, 64)
		if err1 != nil || err2 != nil {
			return "", 0, 0, fmt.Errorf("--lat and --lon must both be numbers")
		}
		return common.FormatCoordinates(latitude, longitude), latitude, longitude, nil
	}
	if query == "" {
		return "", 0, 0, fmt.Errorf("usage: fetch <city> | fetch --lat <lat> --lon <lon> [--days <n>]")
	}
	if city, ok := config.FindCity(a.cfg.Cities, query); ok {
		return city.Name, city.Latitude, city.Longitude, nil
	}
	place, ok := a.gateway.Geocode(ctx, query)
	if !ok {
		return "", 0, 0, fmt.Errorf("lieu introuvable : %s", query)
	}
	return place.Label, place.Latitude, place.Longitude, nil
}

func cmdSearch(a *app, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: search <text>")
	}

	ctx, cancel := commandContext()
	defer cancel()

	place, ok := a.gateway.Geocode(ctx, query)
	if !ok {
		color.Yellow("Aucun résultat pour %q\n", query)
		return nil
	}
	fmt.Printf("%s  (%s)\n", place.Label, common.FormatCoordinates(place.Latitude, place.Longitude))
	return nil
}

// loadLocations fetches records, aggregates them and waits for labels.
func loadLocations(ctx context.Context, a *app, from, to string) (weather.Result, error) {
	if err := a.ensureSession(ctx); err != nil {
		return weather.Result{}, err
	}

	var (
		records []weather.Record
		err     error
	)
	if from != "" || to != "" {
		records, err = a.weather.ListRange(ctx, from, to)
	} else {
		records, err = a.weather.ListAll(ctx)
	}
	if err != nil {
		return weather.Result{}, fmt.Errorf("%s", common.Reason(err))
	}

	res := a.aggregator.Aggregate(records)
	if !res.Complete() {
		color.New(color.Faint).Printf("Résolution de %d lieux...\n", res.Pending)
	}
	return a.aggregator.Wait(ctx)
}

func cmdList(a *app, args []string) error {
	var from, to string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--from":
			if i+1 < len(args) {
				from = args[i+1]
				i++
			}
		case "--to":
			if i+1 < len(args) {
				to = args[i+1]
				i++
			}
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := loadLocations(ctx, a, from, to)
	if err != nil {
		return err
	}
	if len(res.Locations) == 0 {
		fmt.Println("Aucune prévision enregistrée.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  LIEU\tJOURS\tPRÉVISIONS\tCOORDONNÉES")
	fmt.Fprintln(w, "  ----\t-----\t----------\t-----------")
	for _, loc := range res.Locations {
		fmt.Fprintf(w, "  %s\t%d\t%d\t%s\n", loc.Key, len(res.Dates[loc.Key]), len(loc.Forecasts), strings.Join(loc.Coordinates, " "))
	}
	return w.Flush()
}

func cmdDates(a *app, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dates <location> [YYYY-MM-DD]")
	}
	key := args[0]

	ctx, cancel := commandContext()
	defer cancel()

	res, err := loadLocations(ctx, a, "", "")
	if err != nil {
		return err
	}
	if _, ok := res.Location(key); !ok {
		return fmt.Errorf("lieu inconnu : %s", key)
	}

	now := time.Now()
	if len(args) < 2 {
		for _, day := range res.Dates[key] {
			fmt.Printf("  %s  %s\n", day, weather.DayLabel(day, now))
		}
		return nil
	}

	day := args[1]
	forecasts := res.ForecastsOn(key, day)
	if len(forecasts) == 0 {
		return fmt.Errorf("aucune prévision pour %s le %s", key, day)
	}

	color.New(color.FgCyan).Printf("%s, %s\n", key, weather.DayLabel(day, now))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, f := range forecasts {
		fmt.Fprintf(w, "  %s\t%s\n", weather.FormatHour(f.Time), formatTemp(f.Temperature))
	}
	return w.Flush()
}

func formatTemp(t *float64) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f°C", *t)
}

func cmdAsk(a *app, args []string) error {
	question := strings.Join(args, " ")

	ctx, cancel := commandContext()
	defer cancel()

	if err := a.ensureSession(ctx); err != nil {
		return err
	}
	answer, err := a.channel.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("%s", common.Reason(err))
	}
	fmt.Println(answer)
	return nil
}

func cmdChat(a *app) error {
	ctx, cancel := commandContext()
	err := a.ensureSession(ctx)
	cancel()
	if err != nil {
		return err
	}

	conv := agent.NewConversation(a.channel)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	cyan.Printf("Conversation %s (Ctrl+D pour quitter)\n\n", conv.ID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024)
	for {
		green.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ctx, cancel := commandContext()
		msgs, err := conv.Send(ctx, line)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Erreur : %v\n", err)
			continue
		}
		fmt.Println(msgs[len(msgs)-1].Content)
		fmt.Println()
	}
}
