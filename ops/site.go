// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package ops

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diffeo/agsadmin/ags"
	"github.com/diffeo/agsadmin/restdata"
)

func init() {
	register(
		Command{
			Name:    "backup",
			Args:    "<folder>",
			Usage:   "export a site backup into a folder on the server",
			MinArgs: 1,
			Check:   checkBackup,
			Action:  backup,
		},
		Command{
			Name:      "restore",
			Args:      "<file> [report]",
			Usage:     "create the site if needed and restore it from a backup file on the server",
			MinArgs:   1,
			Anonymous: true,
			Action:    restore,
		},
	)
}

// importCompleted starts the message that reports a finished restore.
const importCompleted = "Import operation completed in "

// byteOrderMark starts the restore report so Windows editors detect
// UTF-8.
const byteOrderMark = "\ufeff"

// reportRule underlines the restore report message heading.
var reportRule = strings.Repeat("-", 133)

func checkBackup(args []string) error {
	if strings.TrimSpace(args[0]) == "" {
		return ags.ErrUsage{Message: "Please define a folder for the backup to be exported to."}
	}
	return nil
}

func backup(ctx context.Context, env *Env, args []string) error {
	folder := strings.TrimSpace(args[0])
	env.printf("Backing up the ArcGIS Server site running at %s...", env.Client.Site.Host)
	result, err := env.Client.ExportSite(ctx, folder)
	if err != nil {
		return err
	}
	env.printf("ArcGIS Server site has been successfully backed up and is available at this location: %s...", result.Location)
	env.log().WithField("location", result.Location).Info("site backed up")
	return nil
}

// RestoreReport splits the messages of a site import into the
// completion message and everything else.
type RestoreReport struct {
	// Completed is the "Import operation completed in ..."
	// message, or "" if there was none.
	Completed string

	// Messages are the remaining messages in the order received.
	Messages []string
}

// NewRestoreReport sorts the messages of an import result.
func NewRestoreReport(result restdata.ImportSiteResult) RestoreReport {
	var report RestoreReport
	for _, r := range result.Result {
		for _, m := range r.Messages {
			if report.Completed == "" && r.Source == "SITE" && m.Level == "INFO" &&
				strings.Contains(m.Message, importCompleted) {
				report.Completed = m.Message
				continue
			}
			report.Messages = append(report.Messages, m.Message)
		}
	}
	return report
}

// Write writes the report as UTF-8 text with a byte order mark.
func (r RestoreReport) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(byteOrderMark)
	fmt.Fprintf(bw, "Site has been successfully restored. %s\n\n", r.Completed)
	if len(r.Messages) > 0 {
		bw.WriteString("Below are the messages returned from the restore operation. " +
			"You should review these messages and update your site configuration as needed:\n")
		bw.WriteString(reportRule + "\n")
		for i, msg := range r.Messages {
			fmt.Fprintf(bw, "%d.%s\n\n", i+1, msg)
		}
	}
	return bw.Flush()
}

func writeReport(path string, report RestoreReport) error {
	f, err := os.Create(path)
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	err = report.Write(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return ags.ErrLocalIO{Path: path, Err: err}
	}
	return nil
}

func restore(ctx context.Context, env *Env, args []string) error {
	file := strings.TrimSpace(args[0])
	if file == "" {
		return ags.ErrUsage{Message: "Please define a ArcGIS Server site backup file."}
	}
	reportPath := ""
	if len(args) > 1 {
		reportPath = strings.TrimSpace(args[1])
	}

	err := env.Client.CreateSite(ctx, env.Username, env.Password)
	if _, isRemote := err.(ags.ErrRemoteOperation); isRemote {
		env.printf("Site already created...")
		env.log().WithError(err).Debug("createNewSite refused")
	} else if err != nil {
		return err
	} else {
		env.printf("Site created successfully...")
	}

	if err := env.authenticate(ctx); err != nil {
		return err
	}

	env.printf("Beginning to restore the ArcGIS Server site running on %s using the site backup available at: %s...",
		env.Client.Site.Host, file)
	env.printf("This operation can take some time. You will not receive any status messages " +
		"and will not be able to access the site until the operation is complete...")
	result, err := env.Client.ImportSite(ctx, file)
	if err != nil {
		return err
	}

	report := NewRestoreReport(result)
	if report.Completed != "" {
		env.printf("ArcGIS Server site has been successfully restored. %s", report.Completed)
	}
	env.log().WithField("messages", len(report.Messages)).Info("site restored")

	if reportPath != "" {
		if err := writeReport(reportPath, report); err != nil {
			return err
		}
		env.printf("A file with the report from the restore utility has been saved at: %s", reportPath)
	}
	return nil
}
