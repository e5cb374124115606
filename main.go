/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/wbsplan/cmd"
	"github.com/josephgoksu/wbsplan/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}
