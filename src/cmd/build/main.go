// build 是 datasync 的构建工具：go run ./src/cmd/build <command>
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin"
)

var customVersion string

func main() {
	os.Exit(runCmd(os.Args[1:]))
}

func runCmd(args []string) int {
	app := kingpin.New("build", "datasync build tool.")

	devCmd := app.Command("dev", "Build for development.")
	devCmd.Flag("version", "自定义版本号").StringVar(&customVersion)
	devCmd.Action(devBuild)

	app.Command("dev-incremental", "只在源码变化时重新编译").Action(devIncrementalBuild)
	app.Command("release", "Build for release.").Action(releaseBuild)
	app.Command("test", "Run tests.").Action(goTest)
	app.Command("generate", "go generate ./...").Action(goGenerate)
	app.Command("clean", "清理构建产物").Action(cleanBuild)

	if _, err := app.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func devBuild(*kingpin.ParseContext) error {
	if customVersion != "" {
		os.Setenv("APP_VERSION", customVersion)
	}
	return buildBinary(NewTarget(true, ""))
}

func devIncrementalBuild(*kingpin.ParseContext) error {
	target := NewTarget(true, devBinaryPath())
	rebuild, reason := needsRebuild(target.Output, "src")
	if !rebuild {
		fmt.Println("[增量构建] 源码无变化，跳过编译")
		return nil
	}
	fmt.Printf("[增量构建] %s，需要重新编译\n", reason)
	return buildBinary(target)
}

func releaseBuild(*kingpin.ParseContext) error {
	return buildBinary(NewTarget(false, ""))
}

func goTest(*kingpin.ParseContext) error {
	return execCommand("go", "test", "-race", "--cover", "-coverprofile=coverage.txt", "./src/...")
}

func goGenerate(*kingpin.ParseContext) error {
	return execCommand("go", "generate", "./...")
}

func cleanBuild(*kingpin.ParseContext) error {
	for _, p := range []string{"bin", "coverage.txt"} {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("删除 %s 失败: %w", p, err)
		}
		fmt.Printf("已删除: %s\n", p)
	}
	return nil
}
