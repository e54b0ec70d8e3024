// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package mirror downloads every document of a Cahier de Prépa course site
into a local directory tree that follows the site's folder structure.

# Quick Start

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/bodaay/prepamirror/pkg/mirror"
	)

	func main() {
		ctx := context.Background()
		job := mirror.DefaultJob()
		job.Update = true
		cfg := mirror.DefaultSettings()

		sess, err := mirror.Authenticate(ctx, job, cfg, mirror.Credentials{
			Login:    "student",
			Password: "secret",
		})
		if err != nil {
			log.Fatal(err)
		}

		sum, err := mirror.Mirror(ctx, sess, job, cfg, func(e mirror.ProgressEvent) {
			fmt.Printf("[%s] %s %s\n", e.Event, e.Path, e.Message)
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("saved %d, skipped %d, failed %d\n", sum.Saved, sum.Skipped, sum.Failed)
	}

# Listing Pages

A listing page holds its entries in the first <section> element. Folder
rows are <p class="rep"> and document rows <p class="doc">; each needs a
<span class="nom"> with the display name and an <a href> link. The
"Documents récents" heading and everything after it repeats documents
reachable through folders and is ignored.

Folder links are resolved against the page they appear on, document links
against the site base URL.

# Local Layout

Every folder becomes a directory named by Sanitize(name); every document
becomes Sanitize(name) + Settings.Extension (".pdf" by default).

# Update Mode

With Job.Update set, a document whose target file already exists is
skipped without any size or content check. Otherwise it is downloaded
again and the file replaced.

# Error Handling

Authenticate fails with an error matching ErrAuthFailed. During the walk
nothing is fatal: an unreachable page, a page without a listing or a
failed download is recorded as a StateFailed NodeResult and the walk moves
on to the next entry. Mirror only returns an error when its context is
canceled.
*/
package mirror
