package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/spf13/cobra"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/ai"
	"github.com/helmsman-ai/helmsman/api"
	"github.com/helmsman-ai/helmsman/api/handlers"
	"github.com/helmsman-ai/helmsman/bus"
	"github.com/helmsman-ai/helmsman/communication"
	"github.com/helmsman-ai/helmsman/config"
	"github.com/helmsman-ai/helmsman/core"
	"github.com/helmsman-ai/helmsman/paper"
	"github.com/helmsman-ai/helmsman/risk"
	"github.com/helmsman-ai/helmsman/storage"
)

var (
	apiPort      int
	natsURL      string
	embeddedNats bool
	dataDir      string
	limitsPath   string
	model        string
	paperEquity  float64
)

var rootCmd = &cobra.Command{
	Use:   "helmsmand",
	Short: "Helmsman agent runtime",
	Long:  `Runs the autonomous agent lifecycle engine with its risk control layer and control API.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the runtime and serve the control API",
	RunE:  runServer,
}

func init() {
	runCmd.Flags().IntVar(&apiPort, "api-port", 3000, "control API port")
	runCmd.Flags().StringVar(&natsURL, "nats", "", "NATS URL for the event relay (empty disables it)")
	runCmd.Flags().BoolVar(&embeddedNats, "embedded-nats", false, "run an embedded NATS server")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data/helmsman", "badger data directory")
	runCmd.Flags().StringVar(&limitsPath, "limits", "", "path to a risk limits JSON file (defaults otherwise)")
	runCmd.Flags().StringVar(&model, "model", "", "OpenAI model override")
	runCmd.Flags().Float64Var(&paperEquity, "paper-equity", 10000, "starting equity for the paper book")
	rootCmd.AddCommand(runCmd)
}

func loadLimits() (risk.RiskLimits, error) {
	if limitsPath == "" {
		return risk.DefaultLimits(), nil
	}
	data, err := os.ReadFile(limitsPath)
	if err != nil {
		return risk.RiskLimits{}, fmt.Errorf("failed to read limits file: %w", err)
	}
	var limits risk.RiskLimits
	if err := json.Unmarshal(data, &limits); err != nil {
		return risk.RiskLimits{}, fmt.Errorf("invalid limits file: %w", err)
	}
	return limits, nil
}

func startEmbeddedNats() error {
	ns, err := natsserver.NewServer(&natsserver.Options{Port: 4222})
	if err != nil {
		return fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		return fmt.Errorf("embedded NATS server did not start in time")
	}
	log.Println("Embedded NATS server listening on :4222")
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	limits, err := loadLimits()
	if err != nil {
		return err
	}
	riskMgr, err := risk.NewManager(limits, risk.NewBreakerManager(nil))
	if err != nil {
		return err
	}

	if embeddedNats {
		if err := startEmbeddedNats(); err != nil {
			return err
		}
		if natsURL == "" {
			natsURL = config.NatsURL()
		}
	}

	eventBus := bus.New()

	wsManager := communication.NewWebSocketManager()
	wsManager.Attach(eventBus)

	if natsURL != "" {
		relay, err := communication.NewRelay(natsURL)
		if err != nil {
			return err
		}
		defer relay.Close()
		relay.Attach(eventBus)
	}

	store, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var thinker agent.Thinker
	if key := config.OpenAIKey(); key != "" {
		llmCfg := ai.DefaultLLMConfig()
		if model != "" {
			llmCfg.Model = model
		}
		var researcher *ai.Researcher
		if serpKey := config.SerpKey(); serpKey != "" {
			researcher, err = ai.NewResearcher(serpKey, ai.DefaultSearchConfig(), nil)
			if err != nil {
				return err
			}
		}
		thinker, err = ai.NewThinker(key, llmCfg, researcher)
		if err != nil {
			return err
		}
	} else {
		log.Println("No OpenAI key configured, using the mock thinker")
		thinker = ai.MockThinker{}
	}

	book := paper.NewBook(paperEquity)
	factory := func(cfg core.AgentConfig) (*agent.Agent, error) {
		return agent.New(cfg, agent.Collaborators{
			Sensor:  paper.NewSensor(book),
			Thinker: thinker,
			Actor:   paper.NewActor(book),
			Memory:  store,
		}, riskMgr, eventBus)
	}

	log.Printf("Control API listening on :%d", apiPort)
	return api.StartServer(apiPort, &handlers.Env{
		Risk:     riskMgr,
		WS:       wsManager,
		NewAgent: factory,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
