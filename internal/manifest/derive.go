package manifest

import (
	"fmt"

	"kubeship/internal/config"
	"kubeship/pkg/merge"
)

// deriveGateway fills the implicit gateway fields from the service identity
// and region. It returns nil when the service declares no gateway.
func deriveGateway(src *GatewaySource, hosts []string, service, namespace string, httpPort *int32, public bool, region *config.Region) (*Gateway, error) {
	if src == nil {
		return nil, nil
	}
	gw := &Gateway{
		Name:         merge.Deref(src.Name, service),
		Public:       merge.Deref(src.Public, public),
		Hosts:        hosts,
		Uris:         src.Uris,
		StripURI:     merge.Deref(src.StripURI, false),
		PreserveHost: merge.Deref(src.PreserveHost, true),
	}
	if gw.Hosts == nil {
		if region.Gateway.BaseDomain != "" {
			gw.Hosts = []string{fmt.Sprintf("%s.%s", service, region.Gateway.BaseDomain)}
		} else {
			gw.Hosts = []string{fmt.Sprintf("%s.%s", service, region.Name)}
		}
	}
	port := merge.Deref(httpPort, 80)
	gw.UpstreamURL = merge.Deref(src.UpstreamURL,
		fmt.Sprintf("http://%s.%s.svc.cluster.local:%d", service, namespace, port))

	if src.Authorization != nil {
		auth, err := src.Authorization.Build()
		if err != nil {
			return nil, within("gateway.authorization", err)
		}
		gw.Authorization = auth
	}
	return gw, nil
}

// deriveKafka fills brokers, zookeeper and topic sizing from the region.
func deriveKafka(src *KafkaSource, service string, region *config.Region) *Kafka {
	if src == nil {
		return nil
	}
	k := &Kafka{
		Brokers:       merge.Slice(region.Kafka.Brokers, src.Brokers),
		Zookeeper:     merge.Slice(region.Kafka.Zookeeper, src.Zookeeper),
		ConsumerGroup: merge.Deref(src.ConsumerGroup, service),
	}
	partitions := region.Kafka.Partitions
	if partitions == 0 {
		partitions = config.DefaultPartitions
	}
	replication := region.Kafka.ReplicationFactor
	if replication == 0 {
		replication = config.DefaultReplicationFactor
	}
	for _, t := range src.Topics {
		k.Topics = append(k.Topics, KafkaTopic{
			Name:              t.Name,
			Partitions:        merge.Deref(t.Partitions, partitions),
			ReplicationFactor: merge.Deref(t.ReplicationFactor, replication),
		})
	}
	return k
}

// deriveDataHandling pushes store settings down to fields. Sensitive PII
// is always PII.
func deriveDataHandling(src *DataHandlingSource) *DataHandling {
	if src == nil {
		return nil
	}
	dh := &DataHandling{Processes: src.Processes, Stores: make([]DataStore, 0, len(src.Stores))}
	for _, s := range src.Stores {
		store := DataStore{
			Backend:         s.Backend,
			Encrypted:       merge.Deref(s.Encrypted, false),
			RetentionPeriod: merge.Deref(s.RetentionPeriod, ""),
		}
		for _, f := range s.Fields {
			spii := merge.Deref(f.SPII, false)
			store.Fields = append(store.Fields, DataField{
				Name:            f.Name,
				SPII:            spii,
				PII:             spii || merge.Deref(f.PII, false),
				Encrypted:       merge.Deref(f.Encrypted, store.Encrypted),
				RetentionPeriod: merge.Deref(f.RetentionPeriod, store.RetentionPeriod),
			})
		}
		dh.Stores = append(dh.Stores, store)
	}
	return dh
}
