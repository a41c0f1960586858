package blueprint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
)

// envelope is the on-wire discriminated union: Type names the concrete
// Blueprint variant and Payload carries its fields (a type tag alongside a raw payload, decoded through a second typed
// unmarshal rather than a single polymorphic struct).
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	typeAgent        = "agent"
	typeSupervisor   = "supervisor"
	typeParallel     = "parallel"
	typeRouter       = "router"
	typeHierarchical = "hierarchical"
	typeNetwork      = "network"
)

// wireHandoff/wireWorker/wireRoute/wireDepartment mirror their Blueprint
// counterparts but hold an envelope for the recursive Target/Fallback
// field, since json.RawMessage (not Blueprint) is what actually
// round-trips through encoding/json.
type wireHandoff struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Target      envelope `json:"target"`
}

type wireWorker struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Target      envelope `json:"target"`
}

type wireRoute struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Target      envelope `json:"target"`
}

type wireDepartment struct {
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	ManagerName   string       `json:"manager_name"`
	ManagerClient string       `json:"manager_client,omitempty"`
	Workers       []wireWorker `json:"workers"`
}

type wireAgent struct {
	Name               string        `json:"name"`
	Instructions       string        `json:"instructions"`
	ModelID            string        `json:"model_id"`
	ClientID           string        `json:"client_id,omitempty"`
	MaxTurns           int           `json:"max_turns,omitempty"`
	Temperature        float32       `json:"temperature,omitempty"`
	MaxOutput          int           `json:"max_output,omitempty"`
	ToolNames          []string      `json:"tool_names,omitempty"`
	InputGuardrailIDs  []string      `json:"input_guardrail_ids,omitempty"`
	OutputGuardrailIDs []string      `json:"output_guardrail_ids,omitempty"`
	Handoffs           []wireHandoff `json:"handoffs,omitempty"`
}

type wireSupervisor struct {
	Name               string       `json:"name"`
	Instructions       string       `json:"instructions"`
	ModelID            string       `json:"model_id"`
	ClientID           string       `json:"client_id,omitempty"`
	MaxTurns           int          `json:"max_turns,omitempty"`
	Temperature        float32      `json:"temperature,omitempty"`
	MaxOutput          int          `json:"max_output,omitempty"`
	ToolNames          []string     `json:"tool_names,omitempty"`
	InputGuardrailIDs  []string     `json:"input_guardrail_ids,omitempty"`
	OutputGuardrailIDs []string     `json:"output_guardrail_ids,omitempty"`
	Workers            []wireWorker `json:"workers"`
}

type wireParallel struct {
	Agents []envelope `json:"agents"`
}

type wireRouter struct {
	ModelID  string      `json:"model_id"`
	ClientID string      `json:"client_id,omitempty"`
	Routes   []wireRoute `json:"routes"`
	Fallback *envelope   `json:"fallback,omitempty"`
}

type wireHierarchical struct {
	Name        string           `json:"name"`
	ModelID     string           `json:"model_id"`
	ClientID    string           `json:"client_id,omitempty"`
	MaxRounds   int              `json:"max_rounds,omitempty"`
	Departments []wireDepartment `json:"departments"`
}

type wireNetwork struct {
	Peers       []envelope `json:"peers"`
	MaxRounds   int        `json:"max_rounds,omitempty"`
	Synthesizer *envelope  `json:"synthesizer,omitempty"`
}

// Encode marshals bp to its discriminated-envelope JSON form.
func Encode(bp Blueprint) ([]byte, error) {
	env, err := toEnvelope(bp)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeBlueprint unmarshals data (as produced by Encode) into a Blueprint
// tree without resolving it against a Resolver. Most callers want Decode,
// which also builds the live topology; DecodeBlueprint is exposed for
// callers that want to inspect or rewrite the tree first.
func DecodeBlueprint(data []byte) (Blueprint, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("blueprint: decode envelope: %w", err)
	}
	return fromEnvelope(env)
}

// Decode unmarshals data (as produced by Encode) and builds the live
// topology it describes against r. ctx bounds any membership lookups
// r.Membership performs while resolving guardrail references.
func Decode(ctx context.Context, data []byte, r *Resolver) (agent.Interactable, error) {
	bp, err := DecodeBlueprint(data)
	if err != nil {
		return nil, err
	}
	return Build(ctx, bp, r)
}

func toEnvelope(bp Blueprint) (envelope, error) {
	switch b := bp.(type) {
	case AgentBlueprint:
		handoffs, err := toWireHandoffs(b.Handoffs)
		if err != nil {
			return envelope{}, err
		}
		payload, err := json.Marshal(wireAgent{
			Name: b.Name, Instructions: b.Instructions, ModelID: b.ModelID, ClientID: b.ClientID,
			MaxTurns: b.MaxTurns, Temperature: b.Temperature, MaxOutput: b.MaxOutput,
			ToolNames: b.ToolNames, InputGuardrailIDs: b.InputGuardrailIDs, OutputGuardrailIDs: b.OutputGuardrailIDs,
			Handoffs: handoffs,
		})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeAgent, Payload: payload}, nil

	case SupervisorBlueprint:
		workers, err := toWireWorkers(b.Workers)
		if err != nil {
			return envelope{}, err
		}
		payload, err := json.Marshal(wireSupervisor{
			Name: b.Name, Instructions: b.Instructions, ModelID: b.ModelID, ClientID: b.ClientID,
			MaxTurns: b.MaxTurns, Temperature: b.Temperature, MaxOutput: b.MaxOutput,
			ToolNames: b.ToolNames, InputGuardrailIDs: b.InputGuardrailIDs, OutputGuardrailIDs: b.OutputGuardrailIDs,
			Workers: workers,
		})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeSupervisor, Payload: payload}, nil

	case ParallelBlueprint:
		agents := make([]envelope, 0, len(b.Agents))
		for _, a := range b.Agents {
			e, err := toEnvelope(a)
			if err != nil {
				return envelope{}, err
			}
			agents = append(agents, e)
		}
		payload, err := json.Marshal(wireParallel{Agents: agents})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeParallel, Payload: payload}, nil

	case RouterBlueprint:
		routes := make([]wireRoute, 0, len(b.Routes))
		for _, rt := range b.Routes {
			e, err := toEnvelope(rt.Target)
			if err != nil {
				return envelope{}, err
			}
			routes = append(routes, wireRoute{Name: rt.Name, Description: rt.Description, Target: e})
		}
		var fallback *envelope
		if b.Fallback != nil {
			e, err := toEnvelope(*b.Fallback)
			if err != nil {
				return envelope{}, err
			}
			fallback = &e
		}
		payload, err := json.Marshal(wireRouter{ModelID: b.ModelID, ClientID: b.ClientID, Routes: routes, Fallback: fallback})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeRouter, Payload: payload}, nil

	case HierarchicalBlueprint:
		departments := make([]wireDepartment, 0, len(b.Departments))
		for _, d := range b.Departments {
			workers, err := toWireWorkers(d.Workers)
			if err != nil {
				return envelope{}, err
			}
			departments = append(departments, wireDepartment{
				Name: d.Name, Description: d.Description, ManagerName: d.ManagerName,
				ManagerClient: d.ManagerClient, Workers: workers,
			})
		}
		payload, err := json.Marshal(wireHierarchical{
			Name: b.Name, ModelID: b.ModelID, ClientID: b.ClientID, MaxRounds: b.MaxRounds, Departments: departments,
		})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeHierarchical, Payload: payload}, nil

	case NetworkBlueprint:
		peers := make([]envelope, 0, len(b.Peers))
		for _, p := range b.Peers {
			e, err := toEnvelope(p)
			if err != nil {
				return envelope{}, err
			}
			peers = append(peers, e)
		}
		var synth *envelope
		if b.Synthesizer != nil {
			e, err := toEnvelope(*b.Synthesizer)
			if err != nil {
				return envelope{}, err
			}
			synth = &e
		}
		payload, err := json.Marshal(wireNetwork{Peers: peers, MaxRounds: b.MaxRounds, Synthesizer: synth})
		if err != nil {
			return envelope{}, err
		}
		return envelope{Type: typeNetwork, Payload: payload}, nil

	default:
		return envelope{}, fmt.Errorf("blueprint: encode: %T: %w", bp, ErrUnknownType)
	}
}

func toWireHandoffs(hs []HandoffBlueprint) ([]wireHandoff, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	out := make([]wireHandoff, 0, len(hs))
	for _, h := range hs {
		e, err := toEnvelope(h.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, wireHandoff{Name: h.Name, Description: h.Description, Target: e})
	}
	return out, nil
}

func toWireWorkers(ws []WorkerBlueprint) ([]wireWorker, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]wireWorker, 0, len(ws))
	for _, w := range ws {
		e, err := toEnvelope(w.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, wireWorker{Name: w.Name, Description: w.Description, Target: e})
	}
	return out, nil
}

func fromEnvelope(env envelope) (Blueprint, error) {
	switch env.Type {
	case typeAgent:
		var w wireAgent
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode agent: %w", err)
		}
		handoffs, err := fromWireHandoffs(w.Handoffs)
		if err != nil {
			return nil, err
		}
		return AgentBlueprint{
			Name: w.Name, Instructions: w.Instructions, ModelID: w.ModelID, ClientID: w.ClientID,
			MaxTurns: w.MaxTurns, Temperature: w.Temperature, MaxOutput: w.MaxOutput,
			ToolNames: w.ToolNames, InputGuardrailIDs: w.InputGuardrailIDs, OutputGuardrailIDs: w.OutputGuardrailIDs,
			Handoffs: handoffs,
		}, nil

	case typeSupervisor:
		var w wireSupervisor
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode supervisor: %w", err)
		}
		workers, err := fromWireWorkers(w.Workers)
		if err != nil {
			return nil, err
		}
		return SupervisorBlueprint{
			Name: w.Name, Instructions: w.Instructions, ModelID: w.ModelID, ClientID: w.ClientID,
			MaxTurns: w.MaxTurns, Temperature: w.Temperature, MaxOutput: w.MaxOutput,
			ToolNames: w.ToolNames, InputGuardrailIDs: w.InputGuardrailIDs, OutputGuardrailIDs: w.OutputGuardrailIDs,
			Workers: workers,
		}, nil

	case typeParallel:
		var w wireParallel
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode parallel: %w", err)
		}
		agents := make([]Blueprint, 0, len(w.Agents))
		for _, e := range w.Agents {
			bp, err := fromEnvelope(e)
			if err != nil {
				return nil, err
			}
			agents = append(agents, bp)
		}
		return ParallelBlueprint{Agents: agents}, nil

	case typeRouter:
		var w wireRouter
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode router: %w", err)
		}
		routes := make([]RouteBlueprint, 0, len(w.Routes))
		for _, rt := range w.Routes {
			target, err := fromEnvelope(rt.Target)
			if err != nil {
				return nil, err
			}
			routes = append(routes, RouteBlueprint{Name: rt.Name, Description: rt.Description, Target: target})
		}
		var fallback *Blueprint
		if w.Fallback != nil {
			target, err := fromEnvelope(*w.Fallback)
			if err != nil {
				return nil, err
			}
			fallback = &target
		}
		return RouterBlueprint{ModelID: w.ModelID, ClientID: w.ClientID, Routes: routes, Fallback: fallback}, nil

	case typeHierarchical:
		var w wireHierarchical
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode hierarchical: %w", err)
		}
		departments := make([]DepartmentBlueprint, 0, len(w.Departments))
		for _, d := range w.Departments {
			workers, err := fromWireWorkers(d.Workers)
			if err != nil {
				return nil, err
			}
			departments = append(departments, DepartmentBlueprint{
				Name: d.Name, Description: d.Description, ManagerName: d.ManagerName,
				ManagerClient: d.ManagerClient, Workers: workers,
			})
		}
		return HierarchicalBlueprint{Name: w.Name, ModelID: w.ModelID, ClientID: w.ClientID, MaxRounds: w.MaxRounds, Departments: departments}, nil

	case typeNetwork:
		var w wireNetwork
		if err := json.Unmarshal(env.Payload, &w); err != nil {
			return nil, fmt.Errorf("blueprint: decode network: %w", err)
		}
		peers := make([]Blueprint, 0, len(w.Peers))
		for _, e := range w.Peers {
			bp, err := fromEnvelope(e)
			if err != nil {
				return nil, err
			}
			peers = append(peers, bp)
		}
		var synth *Blueprint
		if w.Synthesizer != nil {
			bp, err := fromEnvelope(*w.Synthesizer)
			if err != nil {
				return nil, err
			}
			synth = &bp
		}
		return NetworkBlueprint{Peers: peers, MaxRounds: w.MaxRounds, Synthesizer: synth}, nil

	default:
		return nil, fmt.Errorf("blueprint: decode: %q: %w", env.Type, ErrUnknownType)
	}
}

func fromWireHandoffs(ws []wireHandoff) ([]HandoffBlueprint, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]HandoffBlueprint, 0, len(ws))
	for _, w := range ws {
		target, err := fromEnvelope(w.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, HandoffBlueprint{Name: w.Name, Description: w.Description, Target: target})
	}
	return out, nil
}

func fromWireWorkers(ws []wireWorker) ([]WorkerBlueprint, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]WorkerBlueprint, 0, len(ws))
	for _, w := range ws {
		target, err := fromEnvelope(w.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, WorkerBlueprint{Name: w.Name, Description: w.Description, Target: target})
	}
	return out, nil
}
