package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hulining/consul-balancer/app"
	"github.com/hulining/consul-balancer/app/config"
	"github.com/hulining/consul-balancer/cores/env"

	"github.com/urfave/cli/v2"
)

var version = "latest"

func load(c *cli.Context) (*config.ServiceConfig, error) {
	var opts []config.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	return config.Load(c.Context, opts...)
}

func run(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	a, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	return a.Run()
}

func validate(c *cli.Context) error {
	cfg, err := load(c)
	if err != nil {
		return err
	}
	fmt.Printf("config ok, %d services, gate %s\n", len(cfg.Services), cfg.GateUsed())
	return nil
}

func main() {
	a := &cli.App{
		Name:    "consul-balancer",
		Usage:   "watch consul health and balance requests across healthy instances",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config path: file path, etcd key or nacos dataId",
				EnvVars: []string{env.BalancerConfigPath},
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "load and validate the config then exit",
				Action: validate,
			},
		},
	}
	if err := a.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
