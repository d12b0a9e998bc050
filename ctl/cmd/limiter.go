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
	limit  int
	burst  int
	enable bool
)

var limiterCmd = &cobra.Command{
	Use:     "limiter",
	Aliases: []string{"l"},
	Short:   "Flow limiter of the id requests",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var limiterGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Get the flow limiter",
	Run: func(cmd *cobra.Command, args []string) {
		operation.PrintFlowLimiter()
	},
}

var limiterSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the flow limiter",
	Run: func(cmd *cobra.Command, args []string) {
		operation.UpdateFlowLimiter(operation.FlowLimiter{Limit: limit, Burst: burst, Enable: enable})
	},
}

func init() {
	limiterSetCmd.Flags().IntVar(&limit, "limit", 10000, "rate of id requests per second")
	limiterSetCmd.Flags().IntVar(&burst, "burst", 1000, "max burst of id requests")
	limiterSetCmd.Flags().BoolVarP(&enable, "enable", "e", false, "enable or disable the flow limiter")
	limiterCmd.AddCommand(limiterGetCmd, limiterSetCmd)
	rootCmd.AddCommand(limiterCmd)
}
