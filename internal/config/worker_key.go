package config

type WorkerKeyStruct struct {
	PersistResultsQueue  string
	NotifyDecisionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistResultsQueue:  "persist_results_queue",
	NotifyDecisionsQueue: "notify_decisions_queue",
}
