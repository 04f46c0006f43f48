//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"net/http"

	"github.com/defiweb/go-eth/rpc/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chronicleprotocol/ethprovider/core"
)

type options struct {
	RpcURL      string
	Address     string
	Block       string
	MetricsAddr string
	Verbose     bool
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "ethprovider",
		Short: "Query an Ethereum JSON-RPC backend through the typed provider",
		Run: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				logger.SetLevel(logger.DebugLevel)
			}

			if opts.RpcURL == "" {
				logger.Errorf("Please provide Rpc URL using `--rpc-url` flag")
				return
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			t, err := transport.NewHTTP(transport.HTTPOptions{URL: opts.RpcURL})
			if err != nil {
				logger.Fatalf("Failed to create transport: %v", err)
			}
			provider := core.New(core.NewGoEthTransport(t))

			if opts.MetricsAddr != "" {
				prometheus.MustRegister(core.RequestCounter, core.RequestErrorCounter)
				go func() {
					http.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(opts.MetricsAddr, nil); err != nil {
						logger.Errorf("Metrics server stopped: %v", err)
					}
				}()
			}

			chainID, err := provider.ChainID(ctx)
			if err != nil {
				logger.Fatalf("Failed to get chain id: %v", err)
			}
			logger.Infof("Chain id: %v", chainID)

			head, err := provider.BlockNumber(ctx)
			if err != nil {
				logger.Fatalf("Failed to get block number: %v", err)
			}
			logger.Infof("Head block: %d", head)

			block, err := parseBlockFlag(opts.Block)
			if err != nil {
				logger.Fatalf("Failed to parse block reference: %v", err)
			}

			if opts.Address != "" {
				addr := core.ParseAddressRef(opts.Address)

				balance, err := provider.Balance(ctx, addr, block)
				if err != nil {
					logger.Fatalf("Failed to get balance: %v", err)
				}
				logger.Infof("Balance of %s: %v wei", opts.Address, balance)

				nonce, err := provider.TransactionCount(ctx, addr, block)
				if err != nil {
					logger.Fatalf("Failed to get nonce: %v", err)
				}
				logger.Infof("Nonce of %s: %d", opts.Address, nonce)
			}

			fee, err := provider.FeeEstimate(ctx)
			if err != nil {
				logger.Fatalf("Failed to get fee estimate: %v", err)
			}
			logger.Infof(
				"Fees: gasPrice=%v maxFeePerGas=%v maxPriorityFeePerGas=%v",
				fee.GasPrice, fee.MaxFeePerGas, fee.MaxPriorityFeePerGas,
			)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.RpcURL, "rpc-url", "", "Node HTTP RPC_URL, normally starts with https://****")
	cmd.PersistentFlags().StringVarP(&opts.Address, "address", "a", "", "Account address or resolvable name to query")
	cmd.PersistentFlags().StringVar(&opts.Block, "block", "", "Block reference: tag, height, hash, or negative offset from latest")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "[Optional] Address to serve prometheus metrics on, e.g. :9090")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	_ = cmd.Execute()
}

func parseBlockFlag(s string) (*core.BlockRef, error) {
	if s == "" {
		return nil, nil
	}
	return core.ParseBlockRef(s)
}
