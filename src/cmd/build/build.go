package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
	"time"

	log "github.com/sirupsen/logrus"
)

// constsPath 注入版本信息的包
const constsPath = "github.com/datasync-go/datasync/src/consts"

const mainPackage = "./src/cmd/datasync"

var ldFlagsTmpl = template.Must(template.New("ldFlags").Parse(
	"-X {{.ConstsPath}}.BuildTime={{.Now}} " +
		"-X {{.ConstsPath}}.AppVersion={{.AppVersion}} " +
		"-X {{.ConstsPath}}.GitHash={{.GitHash}}"))

// Target 一次构建的参数
type Target struct {
	GOOS    string
	GOARCH  string
	Tags    string
	GcFlags string
	LdFlags string
	Output  string
}

// NewTarget 根据环境变量 PLATFORM / ARCH / APP_VERSION 生成构建参数
// output 为空时输出到 bin/datasync-{os}-{arch}
func NewTarget(isDev bool, output string) Target {
	t := Target{
		GOOS:   envOr("PLATFORM", runtime.GOOS),
		GOARCH: envOr("ARCH", runtime.GOARCH),
	}
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = gitOutput("describe", "--tags", "--always")
	}
	t.LdFlags = ldFlags(version, gitOutput("rev-parse", "HEAD"), time.Now())
	if isDev {
		t.Tags = "dev"
		t.GcFlags = "all=-N -l"
	} else {
		t.Tags = "release"
		t.LdFlags = "-s -w " + t.LdFlags
	}
	t.Output = output
	if t.Output == "" {
		t.Output = filepath.Join("bin", binaryName(t.GOOS, t.GOARCH))
	}
	return t
}

func ldFlags(version, gitHash string, now time.Time) string {
	var buf bytes.Buffer
	ldFlagsTmpl.Execute(&buf, map[string]string{
		"ConstsPath": constsPath,
		"Now":        fmt.Sprintf("%d", now.Unix()),
		"AppVersion": version,
		"GitHash":    gitHash,
	})
	return buf.String()
}

func binaryName(goos, goarch string) string {
	name := "datasync-" + goos + "-" + goarch
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

func devBinaryPath() string {
	if envOr("PLATFORM", runtime.GOOS) == "windows" {
		return filepath.Join("bin", "datasync-dev.exe")
	}
	return filepath.Join("bin", "datasync-dev")
}

func buildBinary(t Target) error {
	fmt.Printf("building datasync (Platform: %s, Arch: %s, GoVersion: %s, Tags: %s)\n", t.GOOS, t.GOARCH, runtime.Version(), t.Tags)
	if err := os.MkdirAll(filepath.Dir(t.Output), 0755); err != nil {
		return err
	}
	cmd := exec.Command("go", "build",
		"-tags", t.Tags,
		"-gcflags="+t.GcFlags,
		"-ldflags="+t.LdFlags,
		"-o", t.Output,
		mainPackage,
	)
	cmd.Env = append(os.Environ(), "GOOS="+t.GOOS, "GOARCH="+t.GOARCH, "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Print(cmd.String())
	return cmd.Run()
}

// needsRebuild 像 make 一样比较修改时间
func needsRebuild(binary, srcDir string) (bool, string) {
	info, err := os.Stat(binary)
	if err != nil {
		return true, "二进制文件不存在"
	}
	built := info.ModTime()
	for _, f := range []string{"go.mod", "go.sum"} {
		if fi, err := os.Stat(f); err == nil && fi.ModTime().After(built) {
			return true, f + " 已更新"
		}
	}

	var newer string
	err = filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.ModTime().After(built) {
			newer = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return true, "无法遍历源码目录"
	}
	if newer != "" {
		return true, newer + " 已更新"
	}
	return false, ""
}

func execCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Print(cmd.String())
	return cmd.Run()
}

func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
