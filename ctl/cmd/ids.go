/*
 * Copyright 2024 The ScopeID Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cmd

import (
	"github.com/scopeid/scopeid/ctl/operation"
	"github.com/spf13/cobra"
)

var (
	count   int
	useGrpc bool
)

var nextCmd = &cobra.Command{
	Use:     "next <scope>",
	Aliases: []string{"n"},
	Short:   "Take the next ids of the scope",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		operation.PrintNextIDs(args[0], count, useGrpc)
	},
}

func init() {
	nextCmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to take")
	nextCmd.Flags().BoolVar(&useGrpc, "grpc", false, "take the ids through the grpc service")
	rootCmd.AddCommand(nextCmd)
}
