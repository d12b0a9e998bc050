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

var scopesCmd = &cobra.Command{
	Use:     "scopes",
	Aliases: []string{"s"},
	Short:   "List the scopes known by the server",
	Run: func(cmd *cobra.Command, args []string) {
		operation.PrintScopes()
	},
}

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "List the seeds persisted in the store",
	Run: func(cmd *cobra.Command, args []string) {
		operation.PrintSeeds()
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	Run: func(cmd *cobra.Command, args []string) {
		operation.PrintHealth()
	},
}

func init() {
	rootCmd.AddCommand(scopesCmd, seedsCmd, healthCmd)
}
