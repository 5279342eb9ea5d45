package main

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/case-framework/enrollment-backend/pkg/apperrors"
	idregistry "github.com/case-framework/enrollment-backend/pkg/id-registry"
)

const (
	defaultGeneratedIDLength = 10

	// no ambiguous characters (0/O, 1/l/I)
	identifierCharset = "23456789abcdefghjkmnpqrstuvwxyz"
)

func main() {
	slog.Info("Starting identifier provisioning job")
	start := time.Now()

	registry := idregistry.NewService(
		participantUserDBService,
		studyDBService,
		participantUserDBService,
		conf.IDRegistryConfig.SubstudyValidation,
	)

	for _, task := range conf.ProvisioningTasks {
		runProvisioningTask(registry, task)
	}

	slog.Info("Identifier provisioning job completed", slog.Duration("duration", time.Since(start)))
}

func runProvisioningTask(registry *idregistry.Service, task ProvisioningTask) {
	slog.Debug("Start provisioning task", slog.String("instanceID", task.InstanceID), slog.String("substudyID", task.SubstudyID))

	identifiers, err := identifiersForTask(registry, task)
	if err != nil {
		slog.Error("Error preparing identifiers", slog.String("instanceID", task.InstanceID), slog.String("substudyID", task.SubstudyID), slog.String("error", err.Error()))
		return
	}

	created := 0
	skipped := 0
	for _, identifier := range identifiers {
		if _, err := registry.Create(task.InstanceID, identifier, task.SubstudyID); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				// retried run, the identifier is already there
				skipped++
				continue
			}
			slog.Error("Error creating identifier", slog.String("instanceID", task.InstanceID), slog.String("substudyID", task.SubstudyID), slog.String("identifier", identifier), slog.String("error", err.Error()))
			continue
		}
		created++
	}

	if task.OutputFile != "" {
		if err := writeIdentifiersToFile(task.OutputFile, identifiers); err != nil {
			slog.Error("Error writing identifier list", slog.String("outputFile", task.OutputFile), slog.String("error", err.Error()))
		}
	}

	slog.Info("Provisioning task finished",
		slog.String("instanceID", task.InstanceID),
		slog.String("substudyID", task.SubstudyID),
		slog.Int("created", created),
		slog.Int("skipped", skipped),
	)
}

func identifiersForTask(registry *idregistry.Service, task ProvisioningTask) ([]string, error) {
	if task.IdentifiersFile != "" {
		return readIdentifiersFromFile(task.IdentifiersFile)
	}
	if task.GenerateCount > 0 {
		return generateIdentifiers(task)
	}
	return nil, errors.New("task has neither an identifiers file nor a generate count")
}

func readIdentifiersFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	identifiers := []string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		identifiers = append(identifiers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return identifiers, nil
}

func generateIdentifiers(task ProvisioningTask) ([]string, error) {
	length := task.GenerateLength
	if length < 1 {
		length = defaultGeneratedIDLength
	}

	identifiers := make([]string, 0, task.GenerateCount)
	seen := map[string]struct{}{}
	for len(identifiers) < task.GenerateCount {
		identifier, err := randomIdentifier(task.GeneratePrefix, length)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[identifier]; ok {
			continue
		}
		seen[identifier] = struct{}{}
		identifiers = append(identifiers, identifier)
	}
	return identifiers, nil
}

func randomIdentifier(prefix string, length int) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	for i := 0; i < length; i++ {
		index, err := rand.Int(rand.Reader, big.NewInt(int64(len(identifierCharset))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(identifierCharset[index.Int64()])
	}
	return sb.String(), nil
}

func writeIdentifiersToFile(path string, identifiers []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, identifier := range identifiers {
		if _, err := writer.WriteString(identifier + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
