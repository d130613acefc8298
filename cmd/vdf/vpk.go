// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petar-djukic/keyvalues/internal/vpk"
)

// newVPKCmd creates the "vpk" command group.
func newVPKCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vpk",
		Short: "Read VPK archives",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ls ARCHIVE [PATH]",
		Short: "List a directory inside an archive",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, args[0], func(h *vpk.Handle) error {
				dir := ""
				if len(args) == 2 {
					dir = args[1]
				}
				entries, err := h.ReadDir(dir)
				if err != nil {
					return err
				}
				for _, e := range entries {
					name := e.Name
					if e.IsDir {
						name += "/"
					}
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "files ARCHIVE",
		Short: "List every file in an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, args[0], func(h *vpk.Handle) error {
				for _, f := range h.Files() {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cat ARCHIVE PATH",
		Short: "Print a file stored in an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, args[0], func(h *vpk.Handle) error {
				data, err := h.ReadFile(args[1])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stat ARCHIVE PATH",
		Short: "Describe an entry in an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withArchive(cmd, args[0], func(h *vpk.Handle) error {
				info, err := h.Stat(args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	})
	return cmd
}

// withArchive opens an archive through the service cache for fn.
func (a *app) withArchive(cmd *cobra.Command, dirPath string, fn func(*vpk.Handle) error) error {
	svc, err := a.service(cmd)
	if err != nil {
		return err
	}
	h, err := svc.OpenArchive(dirPath)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn(h)
}
