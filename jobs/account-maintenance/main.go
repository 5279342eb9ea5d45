package main

import (
	"time"

	"log/slog"
)

func main() {
	slog.Info("Starting account maintenance job")
	start := time.Now()

	cleanUpUnverifiedAccounts()

	slog.Info("Account maintenance job completed", slog.Duration("duration", time.Since(start)))
}

func cleanUpUnverifiedAccounts() {
	for _, instanceID := range conf.InstanceIDs {
		slog.Debug("Start cleaning up unverified accounts", slog.String("instanceID", instanceID))

		createdBefore := time.Now().Add(-conf.AccountMaintenanceConfig.DeleteUnverifiedAccountsAfter).Unix()
		count, err := participantUserDBService.DeleteUnverifiedAccounts(instanceID, createdBefore)
		if err != nil {
			slog.Error("Error cleaning up unverified accounts", slog.String("instanceID", instanceID), slog.String("error", err.Error()))
			continue
		}

		slog.Info("Clean up unverified accounts finished", slog.String("instanceID", instanceID), slog.Int("count", int(count)))
	}
}
