package cli

import (
	"fmt"
	"os"

	"github.com/smokyabdulrahman/athan/internal/display"
	"github.com/smokyabdulrahman/athan/internal/qibla"
	"github.com/spf13/cobra"
)

type qiblaJSON struct {
	Location   todayJSONLocation `json:"location"`
	Bearing    float64           `json:"bearing"`
	Compass    string            `json:"compass"`
	DistanceKm float64           `json:"distance_km"`
}

func newQiblaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qibla",
		Short: "Show the direction of the Kaaba",
		Long:  "Print the initial great-circle bearing from your location to the Kaaba, in degrees clockwise from true north.",
		Args:  cobra.NoArgs,
		RunE:  runQibla,
	}
}

func runQibla(cmd *cobra.Command, args []string) error {
	e, err := prepare(cmd)
	if err != nil {
		return err
	}

	loc := e.cfg.Location()
	bearing, err := qibla.Direction(loc.Latitude, loc.Longitude)
	if err != nil {
		return err
	}
	distance, err := qibla.Distance(loc.Latitude, loc.Longitude)
	if err != nil {
		return err
	}

	if FlagJSON {
		return writeJSON(os.Stdout, qiblaJSON{
			Location:   jsonLocation(e),
			Bearing:    bearing,
			Compass:    qibla.Compass(bearing),
			DistanceKm: distance,
		})
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Qibla"))
	fmt.Println()
	fmt.Printf("  %s\n", e.place.Label)
	fmt.Println()
	fmt.Printf("  Direction  %s\n", display.Cyan(fmt.Sprintf("%.2f° %s", bearing, qibla.Compass(bearing))))
	fmt.Printf("  Distance   %.0f km\n", distance)
	fmt.Println()
	return nil
}
