// Command gridtool stores, loads and inspects TsdGrid snapshots (spec.md
// §6 external interface). It is not a demo of the SLAM pipeline — that is
// explicitly out of scope (spec.md §1 Non-goals) — only a thin CLI over
// the grid's store/load/inspect/render operations, grounded on the
// teacher's urfave/cli/v2 command layout (sixy6e-go-gsf/cmd/main.go).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/go-obviously/slam2d/internal/config"
	"github.com/go-obviously/slam2d/pkg/tsdf"
)

func main() {
	app := &cli.App{
		Name:  "gridtool",
		Usage: "inspect and render TsdGrid snapshots",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create an empty grid from a YAML config and store it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "path to a GridConfig YAML file; defaults used if omitted"},
					&cli.StringFlag{Name: "out", Required: true, Usage: "output snapshot path"},
				},
				Action: func(c *cli.Context) error { return initGrid(c.String("config"), c.String("out")) },
			},
			{
				Name:  "inspect",
				Usage: "print partition lifecycle counts for a stored grid",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Required: true, Usage: "snapshot path"},
				},
				Action: func(c *cli.Context) error { return inspect(c.String("in")) },
			},
			{
				Name:  "render",
				Usage: "rasterize a stored grid to a PPM image",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Required: true, Usage: "snapshot path"},
					&cli.StringFlag{Name: "out", Required: true, Usage: "output .ppm path"},
					&cli.IntFlag{Name: "width", Value: 512},
					&cli.IntFlag{Name: "height", Value: 512},
				},
				Action: func(c *cli.Context) error {
					return render(c.String("in"), c.String("out"), c.Int("width"), c.Int("height"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initGrid(configPath, out string) error {
	cfg := config.DefaultGridConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	g := tsdf.NewGrid(cfg)
	defer g.Close()
	return g.StoreGrid(out)
}

func inspect(path string) error {
	g, err := tsdf.LoadGrid(path)
	if err != nil {
		return err
	}
	defer g.Close()

	uninitialized, empty, content := g.LifecycleCounts()
	fmt.Printf("partitions: %d x %d (cellSize=%g maxTruncation=%g worldSize=%g)\n",
		g.PartitionCount(), g.PartitionCount(), g.CellSize(), g.MaxTruncation(), g.WorldSize())
	fmt.Printf("lifecycle: UNINITIALIZED=%d EMPTY=%d CONTENT=%d\n", uninitialized, empty, content)
	return nil
}

func render(in, out string, width, height int) error {
	g, err := tsdf.LoadGrid(in)
	if err != nil {
		return err
	}
	defer g.Close()

	img := make([]byte, width*height*3)
	g.Grid2ColorImage(img, width, height)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	_, err = f.Write(img)
	return err
}
