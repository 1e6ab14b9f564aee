// Package main 提供 GPS 办公室
//
// 使用方法:
//
//	office [-config file] [-listen addr] [-metrics addr] <host> <port> <name> <x> <y>
//
// host、port 为目录服务地址。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dep2p/go-gpsoffice/internal/app"
	"github.com/dep2p/go-gpsoffice/pkg/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [flags] <host> <port> <name> <x> <y>\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	configFile := flag.String("config", "", "配置文件路径（JSON 或 YAML）")
	listen := flag.String("listen", "", "RPC 监听地址，覆盖 transport.listen_addr")
	metrics := flag.String("metrics", "", "prometheus 监听地址，覆盖 office.metrics_addr")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 5 {
		usage()
		return app.ErrUsage
	}
	name := flag.Arg(2)
	coord, err := app.ParseCoordinate(flag.Arg(3), flag.Arg(4))
	if err != nil || name == "" {
		usage()
		if err == nil {
			err = fmt.Errorf("%w: empty office name", app.ErrUsage)
		}
		return err
	}

	cfg, err := app.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if err := app.SetDirectory(cfg, flag.Arg(0), flag.Arg(1)); err != nil {
		usage()
		return err
	}
	if *listen != "" {
		cfg.Transport.ListenAddr = *listen
	}
	if *metrics != "" {
		cfg.Office.MetricsAddr = *metrics
	}

	id := types.Identity{Name: name, Coordinate: coord}
	a, err := app.RunApp(context.Background(), app.NewBootstrap(app.RoleOffice, cfg, app.WithIdentity(id)))
	if err != nil {
		return err
	}
	fmt.Printf("%s 办公室已启动，坐标 %s，地址 %s\n", name, coord, a.Runtime().Endpoint.String())
	return a.Wait()
}
