package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

var (
	Version = "dev"
)

func main() {
	ancli.SetupSlog()

	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			ancli.PrintErr(fmt.Sprintf("程序发生panic: %v\n", r))
			fmt.Fprintln(os.Stderr, "堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		ancli.PrintErr(fmt.Sprintf("%v\n", err))
		os.Exit(1)
	}
}
