package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/soulname/soulstore-backend/cmd/flags"
	"github.com/soulname/soulstore-backend/config"
	"github.com/soulname/soulstore-backend/httpserver"
	"github.com/soulname/soulstore-backend/identity"
	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/metadata"
	"github.com/soulname/soulstore-backend/payment"
	"github.com/soulname/soulstore-backend/pricing"
	"github.com/soulname/soulstore-backend/registry"
	"github.com/soulname/soulstore-backend/storage"
	"github.com/soulname/soulstore-backend/store"
)

var restoreSnapshotFlag = &cli.StringFlag{
	Name:  "restore-snapshot",
	Value: "",
	Usage: "hex content id of a registry snapshot to restore on startup",
}

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "Serve the soul name storefront API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.DeploymentFlag,
			flags.RPCAddrFlag,
			restoreSnapshotFlag,
		}, flags.CommonFlags...),
		Action: runStorefront,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runStorefront(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	deployment, err := config.Load(cCtx.String(flags.DeploymentFlag.Name))
	if err != nil {
		logger.Error("Failed to load deployment config", "err", err)
		return err
	}

	backend, err := storage.NewFactory(logger).CreateMultiBackend(deployment.StorageLocations)
	if err != nil {
		logger.Error("Failed to create storage backends", "err", err)
		return err
	}

	reg := registry.New(registry.Config{
		Extension: deployment.Extension,
		Admin:     deployment.Admin,
		Log:       logger,
	})
	if err := reg.GrantMinterRole(deployment.Admin, deployment.StoreAddress); err != nil {
		return err
	}

	if snapshotID := cCtx.String(restoreSnapshotFlag.Name); snapshotID != "" {
		id, err := interfaces.NewContentIDFromHex(snapshotID)
		if err != nil {
			logger.Error("Invalid snapshot content id", "err", err)
			return err
		}
		if err := reg.Restore(cCtx.Context, backend, id); err != nil {
			logger.Error("Failed to restore registry snapshot", "err", err)
			return err
		}
		logger.Info("Restored registry snapshot", "contentId", snapshotID)
	}

	var (
		identityLink interfaces.IdentityLink
		oracle       interfaces.PriceOracle
	)

	if rpcAddr := cCtx.String(flags.RPCAddrFlag.Name); rpcAddr != "" {
		logger.Info("Connecting to Ethereum RPC", "address", rpcAddr)
		ethClient, err := ethclient.Dial(rpcAddr)
		if err != nil {
			logger.Error("Failed to dial RPC", "err", err)
			return err
		}

		if deployment.IdentityContract != (ethcommon.Address{}) {
			identityLink, err = identity.NewOnchainIdentity(ethClient, deployment.IdentityContract)
			if err != nil {
				return err
			}
		}
		if deployment.SwapRouter != (ethcommon.Address{}) {
			oracle, err = pricing.NewRouterOracle(ethClient, deployment.SwapRouter, deployment.StableCoin)
			if err != nil {
				return err
			}
		}
	}

	if identityLink == nil {
		logger.Info("Issuing identities in-process")
		identityLink = identity.NewMemoryIdentity()
	}
	if oracle == nil {
		logger.Info("Quoting with fixed rates, stable payments only")
		oracle = pricing.NewFixedOracle(deployment.StableCoin, nil)
	}

	ledger := payment.NewMemoryLedger(deployment.PaymentMethods...)

	st := store.New(store.Config{
		Domain:         deployment.Domain(),
		Admin:          deployment.Admin,
		StoreAddress:   deployment.StoreAddress,
		StableCoin:     deployment.StableCoin,
		PaymentMethods: deployment.PaymentMethods,
		Authorities:    deployment.Authorities,
		Fees:           deployment.Fees(),
		Prices:         deployment.Prices,
		Registry:       reg,
		Identity:       identityLink,
		Ledger:         ledger,
		Oracle:         oracle,
		Log:            logger,
	})

	var md *metadata.Service
	if deployment.MetadataBaseURI != "" {
		md, err = metadata.NewService(deployment.MetadataBaseURI, backend, logger)
		if err != nil {
			logger.Error("Failed to create metadata service", "err", err)
			return err
		}
	}

	handler := httpserver.NewHandler(st, reg, md, logger)
	admin := httpserver.NewAdminHandler(st, deployment.Admin, reg, backend, logger)

	srv, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, admin)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}
	srv.Metrics().RegisterActiveLeases("soulstore", func() float64 {
		return float64(reg.ActiveLeases())
	})

	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	return nil
}
