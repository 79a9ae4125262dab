// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/solidcoredata/dca/remotemodel"
	"github.com/solidcoredata/dca/remotemodel/remotemodeltest"
)

var remoteModelAddr = flag.String("remotemodel-addr", fmt.Sprintf(":%d", remotemodel.DefaultPort), "listen address for the remote model demo server")

// runRemoteModel starts a remote model server over a small in-memory grid
// and serves it until ctx is done. It registers with start.RunAll the same
// way service/config.Run does.
func runRemoteModel(ctx context.Context) error {
	ln, err := net.Listen("tcp", *remoteModelAddr)
	if err != nil {
		return fmt.Errorf("remotemodel: listen: %w", err)
	}

	model := remotemodeltest.NewGrid(8, 4, func(row, col int32) string {
		return fmt.Sprintf("row %d, column %d", row, col)
	})
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "remotemodel").Logger()
	srv := remotemodel.NewServer(ln, model, log)

	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(); err != nil {
		select {
		case <-ctx.Done():
			return nil
		default:
			return err
		}
	}
	return nil
}
