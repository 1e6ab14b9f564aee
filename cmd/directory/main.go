// Package main 提供目录服务
//
// 使用方法:
//
//	directory [-config file] <port>
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/dep2p/go-gpsoffice/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [-config file] <port>\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	configFile := flag.String("config", "", "配置文件路径（JSON 或 YAML）")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		return app.ErrUsage
	}
	port, err := app.ParsePort(flag.Arg(0))
	if err != nil {
		usage()
		return err
	}

	cfg, err := app.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	cfg.Directory.Port = port
	cfg.Transport.ListenAddr = net.JoinHostPort("", strconv.Itoa(port))

	a, err := app.RunApp(context.Background(), app.NewBootstrap(app.RoleDirectory, cfg))
	if err != nil {
		return err
	}
	fmt.Printf("目录服务已启动，端口 %d\n", port)
	return a.Wait()
}
