// Package main 提供寄件客户
//
// 使用方法:
//
//	customer [-config file] <host> <port> <office> <x> <y>
//
// 从 office 寄出前往 (x,y) 的包裹，打印每条事件，投递或丢失后以 0 退出。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dep2p/go-gpsoffice/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [-config file] <host> <port> <office> <x> <y>\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	configFile := flag.String("config", "", "配置文件路径（JSON 或 YAML）")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 5 {
		usage()
		return app.ErrUsage
	}
	origin := flag.Arg(2)
	dest, err := app.ParseCoordinate(flag.Arg(3), flag.Arg(4))
	if err != nil {
		usage()
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

	ctx := context.Background()
	b := app.NewBootstrap(app.RoleCustomer, cfg)
	rt, err := b.Start(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = b.Stop(context.Background()) }()

	_, err = rt.Customer.Send(ctx, origin, dest)
	return err
}
