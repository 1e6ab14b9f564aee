// Package main 提供总部
//
// 使用方法:
//
//	headquarters [-config file] [-ws addr] [-mqtt broker] <host> <port>
//
// 打印所有办公室的事件；-ws 开启 /ws 事件流，-mqtt 把事件发布到 broker。
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
	fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [flags] <host> <port>\n", os.Args[0])
	flag.PrintDefaults()
}

func run() error {
	configFile := flag.String("config", "", "配置文件路径（JSON 或 YAML）")
	ws := flag.String("ws", "", "websocket 事件流监听地址，覆盖 headquarters.ws_addr")
	broker := flag.String("mqtt", "", "MQTT broker，覆盖 headquarters.mqtt_broker")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		return app.ErrUsage
	}

	cfg, err := app.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if err := app.SetDirectory(cfg, flag.Arg(0), flag.Arg(1)); err != nil {
		usage()
		return err
	}
	if *ws != "" {
		cfg.Headquarters.WSAddr = *ws
	}
	if *broker != "" {
		cfg.Headquarters.MQTTBroker = *broker
	}

	a, err := app.RunApp(context.Background(), app.NewBootstrap(app.RoleHeadquarters, cfg))
	if err != nil {
		return err
	}
	return a.Wait()
}
