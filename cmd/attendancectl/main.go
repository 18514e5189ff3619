package main

import "github.com/okian/attendance/internal/cli"

func main() {
	cli.Execute()
}
