// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/layerbuild/layerbuild/cmd/layerbuild"

func main() {
	cmd.Execute()
}
